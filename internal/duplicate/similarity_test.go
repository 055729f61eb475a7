package duplicate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/ledgersync/internal/duplicate"
)

func TestCalculateSimilarity(t *testing.T) {
	tests := []struct {
		name string
		s1   string
		s2   string
		want float64
	}{
		{name: "identical", s1: "abc", s2: "abc", want: 1.0},
		{name: "case and trim", s1: " Coffee ", s2: "coffee", want: 1.0},
		{name: "empty left", s1: "", s2: "x", want: 0},
		{name: "empty right", s1: "x", s2: "   ", want: 0},
		{name: "one substitution", s1: "abcd", s2: "abce", want: 0.75},
		{name: "one insertion", s1: "abc", s2: "abcd", want: 0.75},
		{name: "kitten sitting", s1: "kitten", s2: "sitting", want: 1 - 3.0/7.0},
		{name: "nothing shared", s1: "abc", s2: "xyz", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, duplicate.CalculateSimilarity(tt.s1, tt.s2), 1e-9)
		})
	}
}

func TestCalculateSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"Coffee Shop", "coffee shp"},
		{"Supermarket", "Super market"},
		{"a", "bbbb"},
		{"Café", "Cafe"},
	}

	for _, p := range pairs {
		assert.Equal(t, duplicate.CalculateSimilarity(p[0], p[1]), duplicate.CalculateSimilarity(p[1], p[0]))
	}
}
