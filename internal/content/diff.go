package content

import (
	"reflect"
	"sort"

	"github.com/robwestplumbing/sitecms/internal/docstore"
)

// Diff returns the fields of next that differ from base, nested the same way
// as the document. Maps are compared key by key; arrays and scalars are atomic.
// Keys missing from next are ignored.
func Diff(base, next docstore.Fields) docstore.Fields {
	out := docstore.Fields{}
	for k, nv := range next {
		bv, ok := base[k]
		nm, nIsMap := nv.(map[string]any)
		bm, bIsMap := bv.(map[string]any)
		if ok && nIsMap && bIsMap {
			if sub := Diff(docstore.Fields(bm), docstore.Fields(nm)); len(sub) > 0 {
				out[k] = map[string]any(sub)
			}
			continue
		}
		if !ok || !reflect.DeepEqual(bv, nv) {
			out[k] = nv
		}
	}
	return out
}

// Rebase reapplies the local changes (draft relative to oldBase) on top of
// newLive. Fields the draft did not touch follow newLive.
func Rebase(oldBase, draft, newLive docstore.Fields) docstore.Fields {
	out := docstore.CloneFields(newLive)
	return docstore.MergeFields(out, Diff(oldBase, draft))
}

// RebaseContent is Rebase over typed content. Section image lists are
// rebased item by item instead of as whole arrays.
func RebaseContent(oldBase, draft, newLive SiteContent) SiteContent {
	merged := Rebase(ToFields(oldBase), ToFields(draft), ToFields(newLive))
	c, err := FromFields(merged)
	if err != nil {
		return draft
	}
	for _, section := range ImageSections {
		base, _ := oldBase.SectionImages(section)
		local, _ := draft.SectionImages(section)
		live, _ := newLive.SectionImages(section)
		target, _ := c.SectionImages(section)
		*target = RebaseImages(*base, *local, *live)
	}
	c.normalize()
	return c
}

// Equal reports whether a and b store the same document.
func Equal(a, b SiteContent) bool {
	return len(Diff(ToFields(a), ToFields(b))) == 0
}

// ChangedPaths flattens a diff into sorted dotted paths.
func ChangedPaths(diff docstore.Fields) []string {
	var out []string
	var walk func(prefix string, f map[string]any)
	walk = func(prefix string, f map[string]any) {
		for k, v := range f {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			if m, ok := v.(map[string]any); ok {
				walk(p, m)
				continue
			}
			out = append(out, p)
		}
	}
	walk("", diff)
	sort.Strings(out)
	return out
}

// CoreFields is the part of the document stored in the content document: the
// logo and every section images array live elsewhere.
func CoreFields(c SiteContent) docstore.Fields {
	f := ToFields(c)
	if global, ok := f[SectionGlobal].(map[string]any); ok {
		delete(global, "logo")
	}
	for _, key := range ImageSections {
		if section, ok := f[key].(map[string]any); ok {
			delete(section, "images")
		}
	}
	return f
}
