package todo

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinSessionIDLen = 3
	MaxSessionIDLen = 100
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

var requiredFields = []string{"content", "status", "priority", "id"}

// ValidationError describes the first constraint a session key, record or
// record list violated. Msg is meant for callers and is returned verbatim by Error.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// ValidateSessionID checks a caller supplied session key. Keys address stored
// data so anything outside [A-Za-z0-9._-] is rejected before it reaches a backend.
func ValidateSessionID(v any) error {
	s, ok := v.(string)
	if v == nil || (ok && s == "") {
		return invalid("session_id", "Session ID is required but was empty")
	}
	if !ok {
		return invalid("session_id", "Session ID must be a string")
	}
	n := utf8.RuneCountInString(s)
	if n < MinSessionIDLen {
		return invalid("session_id", fmt.Sprintf("Session ID too short (minimum %d characters)", MinSessionIDLen))
	}
	if n > MaxSessionIDLen {
		return invalid("session_id", fmt.Sprintf("Session ID too long (maximum %d characters)", MaxSessionIDLen))
	}
	if !sessionIDPattern.MatchString(s) {
		return invalid("session_id", "Session ID can only contain alphanumeric characters, dots, hyphens, and underscores")
	}
	return nil
}

// ValidateRecord checks a single normalized record and reports the first
// violated constraint.
func ValidateRecord(v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return invalid("", "Todo item must be an object")
	}
	for _, f := range requiredFields {
		if _, ok := m[f]; !ok {
			return invalid(f, "Todo item missing required field: "+f)
		}
	}
	if content, ok := m["content"].(string); !ok || strings.TrimSpace(content) == "" {
		return invalid("content", "Todo content must be a non-empty string")
	}
	if s, _ := m["status"].(string); !Status(s).Valid() {
		return invalid("status", "Todo status must be one of: "+joinStatuses())
	}
	if p, _ := m["priority"].(string); !Priority(p).Valid() {
		return invalid("priority", "Todo priority must be one of: "+joinPriorities())
	}
	if m["id"] == nil {
		return invalid("id", "Todo id is required")
	}
	id, ok := idString(m["id"])
	if !ok {
		return invalid("id", "Todo id must be a string, integer, or number")
	}
	if strings.TrimSpace(id) == "" {
		return invalid("id", "Todo id must not be empty")
	}
	return nil
}

// ValidateAll validates every record of a list, then id uniqueness.
func ValidateAll(v any) error {
	items, ok := asList(v)
	if !ok {
		return invalid("todos", "Todos must be a list")
	}
	for i, item := range items {
		if err := ValidateRecord(item); err != nil {
			ve := err.(*ValidationError)
			return invalid(fmt.Sprintf("todos[%d].%s", i, ve.Field), fmt.Sprintf("Todo item %d: %s", i, ve.Msg))
		}
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id, _ := idString(item.(map[string]any)["id"])
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup {
			return invalid("todos", "Todo items must have unique IDs")
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Decode turns a record that passed ValidateRecord into its typed form.
func Decode(m map[string]any) Record {
	id, _ := idString(m["id"])
	content, _ := m["content"].(string)
	status, _ := m["status"].(string)
	priority, _ := m["priority"].(string)
	return Record{
		ID:       strings.TrimSpace(id),
		Content:  content,
		Status:   Status(status),
		Priority: Priority(priority),
	}
}

// DecodeAll normalizes, validates and decodes a caller supplied list.
func DecodeAll(v any) ([]Record, error) {
	items := NormalizeAll(v)
	if err := ValidateAll(items); err != nil {
		return nil, err
	}
	out := make([]Record, len(items))
	for i, m := range items {
		out[i] = Decode(m)
	}
	return out, nil
}

// idString coerces scalar ids to their string form. Booleans read as
// "True"/"False"; objects and lists are not ids.
func idString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		if x {
			return "True", true
		}
		return "False", true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x), true
	}
	return "", false
}

func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []map[string]any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out, true
	}
	return nil, false
}
