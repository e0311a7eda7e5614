package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJSON(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		empty    string
		expected string
	}{
		{name: "nil value", value: nil, empty: "[]", expected: "[]"},
		{name: "nil slice", value: []string(nil), empty: "[]", expected: "[]"},
		{name: "nil map", value: map[string]any(nil), empty: "{}", expected: "{}"},
		{name: "tags", value: []string{"queue", "repeat"}, empty: "[]", expected: `["queue","repeat"]`},
		{name: "metadata", value: map[string]any{"updateInterval": 1000}, empty: "{}", expected: `{"updateInterval":1000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeJSON(tt.value, tt.empty)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEncodeJSON_Unsupported(t *testing.T) {
	_, err := EncodeJSON(map[string]any{"fn": func() {}}, "{}")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEntity)
}

func TestDecodeJSON(t *testing.T) {
	t.Run("keeps integer precision", func(t *testing.T) {
		var m map[string]any
		require.NoError(t, DecodeJSON([]byte(`{"updatedAt":1712345678901234567}`), &m))
		assert.Equal(t, json.Number("1712345678901234567"), m["updatedAt"])
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		tags := []string{"keep"}
		require.NoError(t, DecodeJSON([]byte("  "), &tags))
		assert.Equal(t, []string{"keep"}, tags)
	})

	t.Run("malformed input", func(t *testing.T) {
		var tags []string
		assert.Error(t, DecodeJSON([]byte(`[`), &tags))
	})
}
