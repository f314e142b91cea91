package matchkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"leading zeros", "0012", "12"},
		{"already clean", "12", "12"},
		{"decimal artifact", "12.0", "12"},
		{"decimal keeps significant digits", "10.50", "10.5"},
		{"decimal ending in ten", "10.00", "10"},
		{"all zeros", "0000", "0"},
		{"zero decimal", "0.0", "0"},
		{"whitespace and case", "  ab-12x ", "AB-12X"},
		{"alphanumeric keeps zeros", "00A12", "00A12"},
		{"padded HU", "00000000001234567890", "1234567890"},
		{"lone dot", ".", "."},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, in := range []string{"0012", "12.0", " x1 ", "0.0", "10.50", "000", "ABC.0", "1.2.0"} {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeEquivalentForms(t *testing.T) {
	assert.Equal(t, Normalize("12"), Normalize("0012"))
	assert.Equal(t, Normalize("12"), Normalize("12.0"))
	assert.Equal(t, Normalize("12"), Normalize("0012.00"))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("  nan "))
	assert.True(t, IsBlank("None"))
	assert.False(t, IsBlank("0"))
	assert.False(t, IsBlank("N/A"))
}

func TestSet(t *testing.T) {
	s := NewSet("0012", "", "nan", "A1")

	assert.Len(t, s, 2)
	assert.True(t, s.Has("12"))
	assert.True(t, s.Has("12.0"))
	assert.True(t, s.Has("a1"))
	assert.False(t, s.Has(""))
	assert.False(t, s.Has("13"))
}
