// Package security scrubs user-supplied text before it reaches storage.
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips all HTML from free-form text fields (review text, store
// descriptions). The strict policy keeps no elements at all; entities are
// unescaped afterwards so plain text like "fish & chips" survives untouched.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *Sanitizer) Sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}
