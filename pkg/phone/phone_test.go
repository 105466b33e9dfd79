package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain ten digit number",
			input:    "9876543210",
			expected: "9876543210",
		},
		{
			name:     "country code prefix",
			input:    "+919876543210",
			expected: "9876543210",
		},
		{
			name:     "formatted with spaces and dashes",
			input:    "+91 98765-43210",
			expected: "9876543210",
		},
		{
			name:     "leading zero trunk prefix",
			input:    "09876543210",
			expected: "9876543210",
		},
		{
			name:     "fewer than ten digits keeps all",
			input:    "43210",
			expected: "43210",
		},
		{
			name:     "no digits",
			input:    "call me",
			expected: "",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Key(tt.input))
		})
	}
}

func TestSameSubscriber(t *testing.T) {
	assert.True(t, SameSubscriber("+91 98765 43210", "9876543210"))
	assert.True(t, SameSubscriber("09876543210", "+919876543210"))
	assert.False(t, SameSubscriber("9876543210", "9876543211"))

	// empty keys never match, not even each other
	assert.False(t, SameSubscriber("", ""))
	assert.False(t, SameSubscriber("abc", "def"))
}

func TestKeys(t *testing.T) {
	keys := Keys([]string{"+91 98765 43210", "9876543210", "", "12345", "09876543210"})
	assert.Equal(t, []string{"9876543210", "12345"}, keys)
}
