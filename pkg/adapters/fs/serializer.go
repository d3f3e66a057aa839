package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Serializer defines how to read and write a specific file format.
// The payload is the flat document including its "version" key.
type Serializer interface {
	Decode(data []byte) (map[string]any, error)
	Encode(payload map[string]any) ([]byte, error)
}

// DefaultSerializers returns the standard set of serializers keyed by extension.
func DefaultSerializers(strict bool) map[string]Serializer {
	return map[string]Serializer{
		".toml": NewTOMLSerializer(),
		".json": NewJSONSerializer(strict),
		".yaml": NewYAMLSerializer(),
		".yml":  NewYAMLSerializer(),
	}
}

// extensions returns the keys of m with preferred first and the rest sorted.
func extensions(m map[string]Serializer, preferred string) []string {
	exts := make([]string, 0, len(m))
	for ext := range m {
		if ext != preferred {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	if _, ok := m[preferred]; ok {
		exts = append([]string{preferred}, exts...)
	}
	return exts
}

// --- JSON Serializer ---

// JSONSerializer handles reading and writing JSON files.
type JSONSerializer struct {
	// Strict enables strict number parsing (as json.Number) to avoid precision loss.
	Strict bool
}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer(strict bool) *JSONSerializer {
	return &JSONSerializer{Strict: strict}
}

func (s *JSONSerializer) Decode(data []byte) (map[string]any, error) {
	var payload map[string]any
	decoder := json.NewDecoder(bytes.NewReader(data))
	if s.Strict {
		decoder.UseNumber()
	}
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return payload, nil
}

func (s *JSONSerializer) Encode(payload map[string]any) ([]byte, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// --- YAML Serializer ---

// YAMLSerializer handles reading and writing YAML files.
type YAMLSerializer struct{}

// NewYAMLSerializer creates a new YAML serializer.
func NewYAMLSerializer() *YAMLSerializer {
	return &YAMLSerializer{}
}

func (s *YAMLSerializer) Decode(data []byte) (map[string]any, error) {
	var payload map[string]any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	normalized, _ := stringKeys(payload).(map[string]any)
	return normalized, nil
}

// stringKeys rewrites nested map[any]any values, produced by yaml.v3 for
// mappings with non-string keys such as `42:`, into map[string]any.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = stringKeys(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = stringKeys(val)
		}
		return out
	default:
		return v
	}
}

func (s *YAMLSerializer) Encode(payload map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --- TOML Serializer ---

// TOMLSerializer handles reading and writing TOML files.
type TOMLSerializer struct{}

// NewTOMLSerializer creates a new TOML serializer.
func NewTOMLSerializer() *TOMLSerializer {
	return &TOMLSerializer{}
}

func (s *TOMLSerializer) Decode(data []byte) (map[string]any, error) {
	var payload map[string]any
	if err := toml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid toml: %w", err)
	}
	return payload, nil
}

// Encode drops nil map values first; TOML has no null. A nil list element
// cannot be dropped without changing the list, so it fails the encode.
func (s *TOMLSerializer) Encode(payload map[string]any) ([]byte, error) {
	pruned, err := pruneNil(payload, "")
	if err != nil {
		return nil, err
	}
	return toml.Marshal(pruned)
}

func pruneNil(v any, path string) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			p, err := pruneNil(val, joinPath(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = p
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			elem := fmt.Sprintf("%s[%d]", path, i)
			if val == nil {
				return nil, fmt.Errorf("toml cannot encode null list element at %s", elem)
			}
			p, err := pruneNil(val, elem)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	default:
		return v, nil
	}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
