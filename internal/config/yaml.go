package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	yaml "go.yaml.in/yaml/v3"
)

// stringFields are config paths typed as strings that YAML users commonly
// write as bare numbers or booleans ("busy_timeout: 1500", "app: 42").
// "*" matches any map key.
var stringFields = [][]string{
	{"properties", "*"},
	{"storage", "busy_timeout"},
	{"watch", "debounce"},
	{"layouts", "*", "pattern"},
	{"layouts", "*", "header"},
	{"layouts", "*", "footer"},
	{"layouts", "*", "replace", "replacement"},
	{"rollovers", "*", "file_pattern"},
	{"rollovers", "*", "granularity"},
}

// coerceToJSONBytes converts a YAML config to JSON so both formats go
// through the same strict decoder. Other files are returned as is.
func coerceToJSONBytes(path string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		if hasUnquotedPattern(data) {
			return nil, fmt.Errorf("yaml: %w (quote patterns that start with %%)", err)
		}
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if v == nil {
		return []byte("{}"), nil
	}

	j, err := json.Marshal(normalizeYAML(v, nil))
	if err != nil {
		return nil, fmt.Errorf("yaml->json: %w", err)
	}
	return j, nil
}

// normalizeYAML makes every map key a string and turns scalars at
// stringFields paths into strings.
func normalizeYAML(in any, path []string) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			key := fmt.Sprint(k)
			m[key] = normalizeYAML(v, append(path[:len(path):len(path)], key))
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = normalizeYAML(v, append(path[:len(path):len(path)], k))
		}
		return m
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i], path)
		}
		return x
	case int, int64, uint64, float64, bool:
		if isStringField(path) {
			return scalarString(x)
		}
		return in
	default:
		return in
	}
}

func isStringField(path []string) bool {
	for _, f := range stringFields {
		if len(f) != len(path) {
			continue
		}
		match := true
		for i := range f {
			if f[i] != "*" && f[i] != path[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func scalarString(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// hasUnquotedPattern reports a "key: %..." line; YAML reads a leading % as
// a directive and rejects the document.
func hasUnquotedPattern(data []byte) bool {
	for _, line := range bytes.Split(data, []byte("\n")) {
		_, val, ok := bytes.Cut(line, []byte(":"))
		if ok && bytes.HasPrefix(bytes.TrimSpace(val), []byte("%")) {
			return true
		}
	}
	return false
}
