package jsonmap

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// FromMap copies a plain map into a GORM JSON map value.
func FromMap(values map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for key, value := range values {
		out[key] = value
	}
	return out
}

// FromValue converts any JSON-encodable struct into a JSON map by
// round-tripping it through its JSON representation, so the stored
// keys match the struct's json tags.
func FromValue(v any) (datatypes.JSONMap, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	out := datatypes.JSONMap{}
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// String returns the value stored under key when it is a non-empty string.
func String(values datatypes.JSONMap, key string) (string, bool) {
	if values == nil {
		return "", false
	}
	str, ok := values[key].(string)
	if !ok || str == "" {
		return "", false
	}
	return str, true
}
