package configparser

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLParser parses standard YAML configuration files (spec.md §4.4).
type YAMLParser struct{}

func NewYAMLParser() YAMLParser { return YAMLParser{} }

func (YAMLParser) Supports(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

func (YAMLParser) ParseFile(path string) ParseResult {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Failure(path, "yaml", []string{err.Error()})
	}

	var decoded map[string]any
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return Failure(path, "yaml", []string{err.Error()})
	}

	var warnings []string
	if decoded == nil {
		decoded = map[string]any{}
		warnings = append(warnings, "file is empty or contains only comments")
	}

	return Success(path, "yaml", normalizeYAMLMap(decoded), warnings)
}

// normalizeYAMLMap recursively converts map[any]any nodes (which
// gopkg.in/yaml.v3 can produce for deeply nested documents depending
// on key types) into map[string]any so ParseResult.Data is always
// string-keyed, matching the framework's contract.
func normalizeYAMLMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = normalizeYAMLValue(v)
	}
	return out
}

func normalizeYAMLValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeYAMLMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAMLValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeYAMLValue(item)
		}
		return out
	default:
		return v
	}
}
