package products

// shapeMatcher finds raw product objects in an extraction root.
// ok reports whether the matcher recognized the payload shape.
type shapeMatcher struct {
	name  string
	match func(root map[string]any) ([]map[string]any, bool)
}

// matchers are tried in order; the first one that recognizes the root wins.
var matchers = []shapeMatcher{
	{name: "products", match: matchProductsList},
	{name: "pages", match: matchPages},
}

func matchProductsList(root map[string]any) ([]map[string]any, bool) {
	list, ok := root["products"].([]any)
	if !ok {
		return nil, false
	}
	found := objects(list)
	if len(list) > 0 && len(found) == 0 {
		return nil, false
	}
	return found, true
}

func matchPages(root map[string]any) ([]map[string]any, bool) {
	pages, ok := root["pages"].([]any)
	if !ok {
		return nil, false
	}
	var out []map[string]any
	for _, rawPage := range pages {
		page, ok := rawPage.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, pageProducts(page["extracted_data"])...)
	}
	return out, true
}

func pageProducts(data any) []map[string]any {
	switch t := data.(type) {
	case map[string]any:
		if list, ok := t["products"].([]any); ok {
			return objects(list)
		}
		if looksLikeProduct(t) {
			return []map[string]any{t}
		}
	case []any:
		return objects(t)
	}
	return nil
}

func looksLikeProduct(obj map[string]any) bool {
	for _, key := range []string{"product_name", "product_model", "characteristics"} {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

func objects(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
