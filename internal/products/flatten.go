package products

import (
	"encoding/json"
	"fmt"
)

// FlattenPages rewrites a paged extraction result so that "extraction" carries a "products" list
// collected from every page, keeping the first product per (product_name, product_model).
// Payloads without pages, or that already list products, are returned unchanged.
func FlattenPages(data []byte) []byte {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return data
	}
	extraction, ok := root["extraction"].(map[string]any)
	if !ok {
		return data
	}
	if _, ok := matchProductsList(extraction); ok {
		return data
	}
	list, ok := matchPages(extraction)
	if !ok {
		return data
	}

	unique := dedupeProducts(list)
	flat := make([]any, len(unique))
	for i, p := range unique {
		flat[i] = p
	}
	extraction["products"] = flat

	out, err := json.Marshal(root)
	if err != nil {
		return data
	}
	return out
}

func dedupeProducts(list []map[string]any) []map[string]any {
	seen := make(map[string]struct{}, len(list))
	out := make([]map[string]any, 0, len(list))
	for _, obj := range list {
		key := fmt.Sprintf("%#v\x00%#v", obj["product_name"], obj["product_model"])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, obj)
	}
	return out
}
