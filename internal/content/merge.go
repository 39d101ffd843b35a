package content

import (
	"encoding/json"

	"github.com/robwestplumbing/sitecms/internal/docstore"
)

// ToFields converts content to its stored JSON shape.
func ToFields(c SiteContent) docstore.Fields {
	raw, err := json.Marshal(c)
	if err != nil {
		// SiteContent holds only strings, ints, bools and slices of them.
		panic(err)
	}
	var f docstore.Fields
	_ = json.Unmarshal(raw, &f)
	return f
}

// FromFields decodes a complete document. Use MergeWithDefaults for fetched,
// possibly partial, documents.
func FromFields(f docstore.Fields) (SiteContent, error) {
	var c SiteContent
	raw, err := json.Marshal(f)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, err
	}
	return c, nil
}

// MergeWithDefaults fills every section of a fetched document from the
// defaults. Each section is merged one level deep with fetched values winning;
// values whose type does not match the default are dropped. Pages are taken
// verbatim when present and non-empty (missing fixed pages are re-added),
// otherwise defaulted. The team is taken verbatim or left empty.
//
// The result is a fixed point: merging ToFields of the result again yields the
// same content.
func MergeWithDefaults(fetched docstore.Fields) SiteContent {
	def := DefaultFields()
	out := docstore.Fields{}

	for _, key := range Sections {
		section, _ := def[key].(map[string]any)
		if section == nil {
			section = map[string]any{}
		}
		if src, ok := fetched[key].(map[string]any); ok {
			for k, v := range src {
				dv, known := section[k]
				if !known || !compatible(dv, v) {
					continue
				}
				if nested, ok := dv.(map[string]any); ok {
					v = filterNested(nested, v.(map[string]any))
				}
				section[k] = v
			}
		}
		out[key] = section
	}

	about := out[SectionAbout].(map[string]any)
	about["team"] = sanitizeTeam(about["team"])
	for _, key := range ImageSections {
		section := out[key].(map[string]any)
		section["images"] = sanitizeImages(section["images"])
	}

	out[KeyPages] = mergePages(fetched[KeyPages], def[KeyPages])

	c, err := FromFields(out)
	if err != nil {
		return Defaults()
	}
	c.normalize()
	return c
}

func compatible(def, v any) bool {
	switch def.(type) {
	case string:
		_, ok := v.(string)
		return ok
	case bool:
		_, ok := v.(bool)
		return ok
	case float64:
		_, ok := v.(float64)
		return ok
	case []any:
		if v == nil {
			return true
		}
		_, ok := v.([]any)
		return ok
	case map[string]any:
		_, ok := v.(map[string]any)
		return ok
	case nil:
		return true
	}
	return false
}

// filterNested keeps the entries of src whose type matches def. Keys absent
// from src are not filled from def: a fetched nested object replaces the
// default one as a whole.
func filterNested(def, src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		if dv, ok := def[k]; ok && compatible(dv, v) {
			out[k] = v
		}
	}
	return out
}

func sanitizeImages(v any) []any {
	list, _ := v.([]any)
	out := make([]any, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sanitizeTeam(v any) []any {
	list, _ := v.([]any)
	out := make([]any, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		member := map[string]any{}
		for _, k := range []string{"name", "role", "bio", "image"} {
			if s, ok := m[k].(string); ok {
				member[k] = s
			} else {
				member[k] = ""
			}
		}
		out = append(out, member)
	}
	return out
}

func mergePages(fetched, def any) []any {
	list, _ := fetched.([]any)
	defaults, _ := def.([]any)

	seen := make(map[string]bool)
	out := make([]any, 0, len(list)+len(FixedPageIDs))
	for _, item := range list {
		p, ok := decodePage(item)
		if !ok || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	fromFetched := len(out) > 0
	for _, item := range defaults {
		p, ok := decodePage(item)
		if !ok || seen[p.ID] {
			continue
		}
		if fromFetched && !IsFixedPage(p.ID) {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

func decodePage(v any) (PageDescriptor, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return PageDescriptor{}, false
	}
	var p PageDescriptor
	raw, err := json.Marshal(m)
	if err != nil {
		return p, false
	}
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" {
		return p, false
	}
	if IsFixedPage(p.ID) {
		p.Kind = PageFixed
	} else {
		p.Kind = PageCustom
	}
	if p.Label == "" {
		p.Label = p.ID
	}
	return p, true
}
