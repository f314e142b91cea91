package packaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOverride(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []int
	}{
		{"K notation", "K-15ks", []int{15}},
		{"K notation singular", "K-8k", []int{8}},
		{"pieces with space", "15 ks", []int{15}},
		{"pieces glued", "balit 24ks", []int{24}},
		{"pack of", "Balení po 6", []int{6}},
		{"pack of without diacritics", "baleni po 12", []int{12}},
		{"box with po", "krabice po 90", []int{90}},
		{"box bare", "Krabice 40", []int{40}},
		{"roll", "role 1000", []int{1000}},
		{"bag", "pytlík: 50", []int{50}},
		{"several sorted and unique", "K-6ks, krabice po 24, 6 ks", []int{24, 6}},
		{"piece-wise marker", "po kusech", []int{1}},
		{"piece-wise loses to numbers", "po kusech, krabice 10", []int{10}},
		{"nothing recognised", "viz poznámka", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOverride(tt.in))
		})
	}
}
