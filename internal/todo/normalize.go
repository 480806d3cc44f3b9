package todo

import (
	"fmt"
	"strings"
)

// DefaultID is the id assigned to the record at position index (zero based)
// when the caller did not provide one.
func DefaultID(index int) string { return fmt.Sprintf("todo-%d", index+1) }

// Normalize fills in defaultable fields of a raw record. A missing or blank id
// becomes DefaultID(index), scalar ids are trimmed strings, and missing
// priority/status default to medium/pending. Present but invalid values are
// left alone so validation rejects them.
func Normalize(raw map[string]any, index int) map[string]any {
	out := make(map[string]any, len(raw)+3)
	for k, v := range raw {
		out[k] = v
	}
	if id, ok := idString(raw["id"]); ok {
		if id = strings.TrimSpace(id); id != "" {
			out["id"] = id
		} else {
			out["id"] = DefaultID(index)
		}
	} else if raw["id"] == nil {
		out["id"] = DefaultID(index)
	}
	if _, ok := raw["priority"]; !ok {
		out["priority"] = string(PriorityMedium)
	}
	if _, ok := raw["status"]; !ok {
		out["status"] = string(StatusPending)
	}
	return out
}

// NormalizeAll normalizes each object in a list, in order. Entries that are
// not objects are dropped; their positions still count for default ids.
// Anything other than a list yields an empty result.
func NormalizeAll(v any) []map[string]any {
	items, ok := asList(v)
	if !ok {
		return []map[string]any{}
	}
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Normalize(m, i))
	}
	return out
}
