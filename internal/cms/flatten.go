package cms

import "encoding/json"

// Flatten rewrites a decoded Strapi v4 payload into the flat v5 shape.
// Objects of the form {id, attributes:{...}} are merged into one object and
// relations wrapped as {data: ...} are unwrapped, recursively. v5 payloads
// pass through unchanged.
func Flatten(v any) any {
	switch t := v.(type) {
	case []any:
		for i := range t {
			t[i] = Flatten(t[i])
		}
		return t
	case map[string]any:
		if attrs, ok := t["attributes"].(map[string]any); ok {
			delete(t, "attributes")
			for k, val := range attrs {
				if _, exists := t[k]; !exists {
					t[k] = val
				}
			}
		}
		for k, val := range t {
			if inner, ok := val.(map[string]any); ok && isRelationWrapper(inner) {
				t[k] = Flatten(inner["data"])
				continue
			}
			t[k] = Flatten(val)
		}
		return t
	default:
		return v
	}
}

// isRelationWrapper matches {data: ...} with an optional meta key
func isRelationWrapper(m map[string]any) bool {
	if _, ok := m["data"]; !ok {
		return false
	}
	for k := range m {
		if k != "data" && k != "meta" {
			return false
		}
	}
	return true
}

// FlattenJSON decodes raw JSON, flattens it and re-encodes it
func FlattenJSON(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(Flatten(v))
}
