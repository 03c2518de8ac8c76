package id

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLength(t *testing.T) {
	t.Parallel()

	assert.Len(t, New(), 26, "ULIDs are 26 characters")
}

func TestNewUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNewMonotonic(t *testing.T) {
	t.Parallel()

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = New()
	}

	assert.True(t, sort.StringsAreSorted(ids),
		"ids generated in sequence must sort in generation order")
}

func TestShort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"full ulid", "01J8ZQ4X5M6N7P8Q9R0S1T2V3W", "01J8ZQ4X"},
		{"exactly eight", "ABCDEFGH", "ABCDEFGH"},
		{"shorter", "ABC", "ABC"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Short(tt.input))
		})
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Valid(New()))
	assert.False(t, Valid(""))
	assert.False(t, Valid("not-a-run-id"))
	assert.False(t, Valid("01HQZX3V"), "prefixes are not valid ids")
}
