package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTagList_Scan tests stored-tag normalization at the read boundary.
func TestTagList_Scan(t *testing.T) {
	tests := []struct {
		input    interface{}
		name     string
		expected TagList
		wantErr  bool
	}{
		{
			name:     "nil input",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "json array string",
			input:    `["a", "b"]`,
			expected: TagList{"a", "b"},
		},
		{
			name:     "json array bytes",
			input:    []byte(`["x"]`),
			expected: TagList{"x"},
		},
		{
			name:     "double-encoded array",
			input:    `"[\"a\",\"b\"]"`,
			expected: TagList{"a", "b"},
		},
		{
			name:     "garbage normalizes to empty",
			input:    "not-json",
			expected: nil,
		},
		{
			name:     "non-list json normalizes to empty",
			input:    `{"tags":["a"]}`,
			expected: nil,
		},
		{
			name:    "unsupported column type",
			input:   42,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var list TagList
			err := list.Scan(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, list)
		})
	}
}

// TestFlexLabel_UnmarshalJSON tests that scalar and array label shapes both
// flatten to the same list.
func TestFlexLabel_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected FlexLabel
	}{
		{name: "scalar", input: `"병맛"`, expected: FlexLabel{"병맛"}},
		{name: "array", input: `["병맛", "공감"]`, expected: FlexLabel{"병맛", "공감"}},
		{name: "empty string", input: `""`, expected: nil},
		{name: "null", input: `null`, expected: nil},
		{name: "unexpected shape", input: `{"x":1}`, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var label FlexLabel
			require.NoError(t, json.Unmarshal([]byte(tt.input), &label))
			assert.Equal(t, tt.expected, label)
		})
	}
}

func TestFlexLabel_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(FlexLabel{"병맛"})
	require.NoError(t, err)
	assert.JSONEq(t, `["병맛"]`, string(data))

	data, err = json.Marshal(FlexLabel(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestFlexLabel_Scan(t *testing.T) {
	var label FlexLabel
	require.NoError(t, label.Scan(`["공감"]`))
	assert.Equal(t, FlexLabel{"공감"}, label)

	// Legacy writers stored the bare category text.
	require.NoError(t, label.Scan("병맛"))
	assert.Equal(t, FlexLabel{"병맛"}, label)

	require.NoError(t, label.Scan(nil))
	assert.Nil(t, label)
}

func TestEventWindow(t *testing.T) {
	start, end := EventWindow(10)
	assert.Equal(t, int64(9), start)
	assert.Equal(t, int64(11), end)

	// Detection in the first second floors at zero.
	start, end = EventWindow(0)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(1), end)
}
