package products

import "encoding/json"

// Canonicalize converts one raw extraction payload into products.
// It never fails: payloads it cannot read produce an empty list.
func Canonicalize(payload any) []Product {
	root := extractionRoot(payload)
	if root == nil {
		return []Product{}
	}

	var raw []map[string]any
	for _, m := range matchers {
		if found, ok := m.match(root); ok {
			raw = found
			break
		}
	}

	out := make([]Product, 0, len(raw))
	for _, obj := range raw {
		out = append(out, toProduct(obj))
	}
	return out
}

// CanonicalizeJSON decodes data and canonicalizes it. Invalid JSON yields an empty list.
func CanonicalizeJSON(data []byte) []Product {
	if len(data) == 0 {
		return []Product{}
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return []Product{}
	}
	return Canonicalize(payload)
}

func extractionRoot(payload any) map[string]any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	if inner, ok := obj["extraction"].(map[string]any); ok {
		return inner
	}
	return obj
}

func toProduct(obj map[string]any) Product {
	name := nameString(firstPresent(obj, "product_name", "name"))
	if name == "" {
		name = UnknownProductName
	}
	p := Product{
		Name:            name,
		Model:           optionalString(firstPresent(obj, "product_model", "model")),
		Characteristics: []Characteristic{},
	}

	entries, _ := obj["characteristics"].([]any)
	for _, rawEntry := range entries {
		entry, ok := rawEntry.(map[string]any)
		if !ok {
			continue
		}
		charName := nameString(entry["name"])
		if charName == "" {
			continue
		}
		p.Characteristics = append(p.Characteristics, Characteristic{
			Name:       charName,
			Value:      optionalString(entry["value"]),
			References: stringList(entry["references"]),
		})
	}
	return p
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := obj[key]; ok && v != nil {
			return v
		}
	}
	return nil
}
