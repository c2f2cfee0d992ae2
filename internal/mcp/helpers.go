package mcpserver

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// parseJSON parses a JSON string into the target type.
func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}

func boolPtr(v bool) *bool { return &v }

// stringArg returns args[key] when it is a non-empty string.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// valuesArg reads a values object keyed by variable name. Each value may be
// a string, a number, a boolean or, for multiselects, a list of labels.
func valuesArg(args map[string]any, key string) (map[string]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return map[string]string{}, nil
	}
	if s, ok := raw.(string); ok {
		var m map[string]any
		if err := parseJSON(s, &m); err != nil {
			return nil, fmt.Errorf("%s must be a JSON object: %w", key, err)
		}
		raw = m
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object", key)
	}
	out := make(map[string]string, len(obj))
	for name, v := range obj {
		text, err := inputText(v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", key, name, err)
		}
		out[name] = text
	}
	return out, nil
}

func inputText(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			text, err := inputText(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, text)
		}
		return strings.Join(parts, ", "), nil
	}
	return "", fmt.Errorf("unsupported value %T", v)
}
