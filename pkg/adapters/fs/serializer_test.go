package fs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializers(t *testing.T) {
	payload := map[string]any{
		"version": "0.2.0",
		"title":   "Test Title",
		"tags":    []any{"a", "b"},
		"meta": map[string]any{
			"foo": "bar",
		},
	}

	for ext, s := range DefaultSerializers(false) {
		t.Run(ext, func(t *testing.T) {
			data, err := s.Encode(payload)
			require.NoError(t, err)

			parsed, err := s.Decode(data)
			require.NoError(t, err)

			assert.Equal(t, "0.2.0", parsed["version"])
			assert.Equal(t, "Test Title", parsed["title"])
			assert.Equal(t, []any{"a", "b"}, parsed["tags"])

			meta, ok := parsed["meta"].(map[string]any)
			require.True(t, ok, "meta decoded as %T", parsed["meta"])
			assert.Equal(t, "bar", meta["foo"])
		})
	}
}

func TestTOMLSerializerDropsNil(t *testing.T) {
	s := NewTOMLSerializer()

	data, err := s.Encode(map[string]any{
		"version":    "0.1.0",
		"created_at": nil,
		"nested":     map[string]any{"gone": nil, "kept": "x"},
	})
	require.NoError(t, err)

	parsed, err := s.Decode(data)
	require.NoError(t, err)
	assert.NotContains(t, parsed, "created_at")
	assert.Equal(t, map[string]any{"kept": "x"}, parsed["nested"])
}

func TestTOMLSerializerRejectsNilListElement(t *testing.T) {
	_, err := NewTOMLSerializer().Encode(map[string]any{
		"version": "0.2.0",
		"history": map[string]any{"user": []any{"hi", nil, "bye"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history.user[1]")
}

func TestTOMLSerializerKeepsListLength(t *testing.T) {
	s := NewTOMLSerializer()

	data, err := s.Encode(map[string]any{
		"version": "0.2.0",
		"turns":   []any{map[string]any{"role": "user", "note": nil}, map[string]any{"role": "assistant"}},
	})
	require.NoError(t, err)

	parsed, err := s.Decode(data)
	require.NoError(t, err)
	turns, ok := parsed["turns"].([]any)
	require.True(t, ok, "turns decoded as %T", parsed["turns"])
	assert.Len(t, turns, 2)
}

func TestYAMLSerializerStringifiesKeys(t *testing.T) {
	data := []byte(`version: 0.1.0
history:
  42:
    - role: user
      content: hi
  true: []
  mai:
    - nested: {7: seven}
`)

	parsed, err := NewYAMLSerializer().Decode(data)
	require.NoError(t, err)

	history, ok := parsed["history"].(map[string]any)
	require.True(t, ok, "history decoded as %T", parsed["history"])
	assert.Contains(t, history, "42")
	assert.Contains(t, history, "true")

	mai := history["mai"].([]any)
	assert.Equal(t, map[string]any{"nested": map[string]any{"7": "seven"}}, mai[0])

	_, err = json.Marshal(parsed)
	assert.NoError(t, err)
}

func TestJSONSerializerStrict(t *testing.T) {
	data := []byte(`{"version":"0.1.0","count":9007199254740993}`)

	loose, err := NewJSONSerializer(false).Decode(data)
	require.NoError(t, err)
	assert.IsType(t, float64(0), loose["count"])

	strict, err := NewJSONSerializer(true).Decode(data)
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), strict["count"])
}

func TestSerializersRejectGarbage(t *testing.T) {
	garbage := map[string][]byte{
		".json": []byte("{not json"),
		".yaml": []byte("key: [unclosed"),
		".toml": []byte("= nope"),
	}
	serializers := DefaultSerializers(false)
	for ext, data := range garbage {
		_, err := serializers[ext].Decode(data)
		assert.Error(t, err, ext)
	}
}

func TestExtensionsPreferredFirst(t *testing.T) {
	exts := extensions(DefaultSerializers(false), ".yaml")
	assert.Equal(t, []string{".yaml", ".json", ".toml", ".yml"}, exts)
}
