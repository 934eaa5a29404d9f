package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Coffee Shop", "coffee-shop"},
		{"punctuation collapsed", "Dang! That's Delicious", "dang-that-s-delicious"},
		{"surrounding whitespace trimmed", "  Beer & Wine  ", "beer-wine"},
		{"digits kept", "Cafe 24/7", "cafe-24-7"},
		{"already a slug", "taco-town", "taco-town"},
		{"non ascii dropped", "Crêpes", "cr-pes"},
		{"only punctuation", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestNextSlug(t *testing.T) {
	// No existing match keeps the base untouched.
	assert.Equal(t, "coffee-shop", nextSlug("coffee-shop", 0))

	// The second store named "Coffee Shop" gets coffee-shop-2.
	assert.Equal(t, "coffee-shop-2", nextSlug("coffee-shop", 1))

	// Further collisions keep incrementing off the match count.
	assert.Equal(t, "coffee-shop-3", nextSlug("coffee-shop", 2))
}

func TestSlugsPairwiseDistinct(t *testing.T) {
	seen := map[string]bool{}
	for existing := 0; existing < 10; existing++ {
		s := nextSlug("coffee-shop", existing)
		assert.False(t, seen[s], "slug %q produced twice", s)
		seen[s] = true
	}
}
