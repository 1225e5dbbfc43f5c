package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"%Camera", "%Camra", 1},
		{"same", "same", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"->"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b))
			assert.Equal(t, tt.want, LevenshteinDistance(tt.b, tt.a))
		})
	}
}

func TestFindSimilar(t *testing.T) {
	candidates := []string{"%Camera", "%Player", "%camera2", "World/Player/Sprite"}

	assert.Equal(t, []string{"%Camera", "%camera2"}, FindSimilar("%Camra", candidates, 0))
	assert.Equal(t, []string{"%Player"}, FindSimilar("%PLAYER", candidates, 1), "comparison ignores case")
	assert.Empty(t, FindSimilar("%Camera", []string{"%Camera"}, 0), "exact matches are not suggestions")
	assert.Empty(t, FindSimilar("Nothing", candidates, 0))

	many := []string{"ab", "ac", "ad", "ae"}
	assert.Len(t, FindSimilar("aa", many, 1), MaxSuggestions)
}
