package products

import (
	"encoding/json"
	"strconv"
	"strings"
)

// UnwrapValue returns v["value"] when v is an object holding a "value" key.
// Only one level is removed; a nested wrapper stays as it is.
func UnwrapValue(v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}
	inner, ok := obj["value"]
	if !ok {
		return v
	}
	return inner
}

// stringify renders a decoded JSON scalar as text. Nil yields ok=false.
func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

func optionalString(v any) *string {
	s, ok := stringify(UnwrapValue(v))
	if !ok {
		return nil
	}
	return &s
}

func nameString(v any) string {
	s, ok := stringify(UnwrapValue(v))
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := stringify(item); ok {
			out = append(out, s)
		}
	}
	return out
}
