package docstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// normalize resolves ServerTimestamp sentinels and converts fields to plain
// JSON values (map[string]any, []any, string, float64, bool, nil).
func normalize(fields Fields, now time.Time) (Fields, error) {
	resolved := resolveTimestamps(map[string]any(fields), now.UTC().Format(TimestampLayout))
	raw, err := json.Marshal(resolved)
	if err != nil {
		return nil, err
	}
	var out Fields
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Fields{}
	}
	return out, nil
}

func resolveTimestamps(v any, ts string) any {
	switch t := v.(type) {
	case serverTimestamp:
		return ts
	case Fields:
		return resolveTimestamps(map[string]any(t), ts)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = resolveTimestamps(val, ts)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = resolveTimestamps(val, ts)
		}
		return out
	default:
		return v
	}
}

// MergeFields deep-merges src into dst. Maps merge recursively; arrays and
// scalars in src replace whatever dst holds. dst is modified in place.
func MergeFields(dst, src Fields) Fields {
	if dst == nil {
		dst = Fields{}
	}
	for k, v := range src {
		srcMap, srcIsMap := asMap(v)
		dstMap, dstIsMap := asMap(dst[k])
		if srcIsMap && dstIsMap {
			dst[k] = map[string]any(MergeFields(Fields(dstMap), Fields(srcMap)))
			continue
		}
		dst[k] = cloneValue(v)
	}
	return dst
}

// CloneFields returns a deep copy.
func CloneFields(f Fields) Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Fields:
		return map[string]any(CloneFields(t))
	case map[string]any:
		return map[string]any(CloneFields(Fields(t)))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case Fields:
		return map[string]any(t), true
	case map[string]any:
		return t, true
	}
	return nil, false
}

// EncodedSize is the serialized size of fields as stored.
func EncodedSize(fields Fields) (int, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}

func sortSnapshots(docs []DocumentSnapshot, order OrderBy) {
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(docs[i].Fields[order.Field], docs[j].Fields[order.Field])
		if c == 0 {
			c = compareValues(docs[i].ID, docs[j].ID)
		}
		if order.Descending {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case nil:
		if b == nil {
			return 0
		}
		return -1
	}
	if b == nil {
		return 1
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
