package comparison

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoJSONObject = errors.New("no JSON object found")

// ParseError reports a reasoning response that holds no readable JSON object.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "parse comparison response"
	}
	return "parse comparison response: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// response is the decoded shape of one reasoning call.
type response struct {
	Comparisons []map[string]any
	Summary     string
	Doc         map[string]any
}

// extractJSON locates and decodes the JSON object in raw model output.
// Code fences, a json tag and surrounding prose are tolerated.
func extractJSON(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.Trim(text, "`")
		if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
			text = text[4:]
		}
		text = strings.TrimSpace(text)
	}

	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		if doc, err := decodeObject(text); err == nil {
			return doc, nil
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, &ParseError{Raw: raw, Err: errNoJSONObject}
	}
	doc, err := decodeObject(text[start : end+1])
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	return doc, nil
}

func decodeObject(text string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errNoJSONObject
	}
	return doc, nil
}

// decodeResponse reads comparisons and summary from a decoded document.
// Non-object comparison entries are kept as empty rows so positions still line up.
func decodeResponse(doc map[string]any) response {
	resp := response{Doc: doc}
	if list, ok := doc["comparisons"].([]any); ok {
		resp.Comparisons = make([]map[string]any, 0, len(list))
		for _, entry := range list {
			obj, _ := entry.(map[string]any)
			if obj == nil {
				obj = map[string]any{}
			}
			resp.Comparisons = append(resp.Comparisons, obj)
		}
	}
	if s, ok := doc["summary"].(string); ok {
		resp.Summary = strings.TrimSpace(s)
	}
	return resp
}

func rowFromObject(obj map[string]any) Row {
	row := Row{
		Characteristic: textOf(obj["characteristic"]),
		TZValue:        optionalText(obj["tz_value"]),
		PassportValue:  optionalText(obj["passport_value"]),
		TZQuote:        optionalText(obj["tz_quote"]),
		PassportQuote:  optionalText(obj["passport_quote"]),
		Note:           optionalText(obj["note"]),
	}
	if b, ok := obj["is_match"].(bool); ok {
		row.IsMatch = b
	}
	return row
}

func optionalText(v any) *string {
	if v == nil {
		return nil
	}
	s := textOf(v)
	return &s
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
