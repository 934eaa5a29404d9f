package store

import (
	"fmt"
	"strings"
)

// Slugify converts a display name into a URL-safe slug: lowercased, ASCII
// alphanumerics kept, every other run of characters collapsed into a single
// dash. "Coffee & Tea!" becomes "coffee-tea".
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}

// nextSlug disambiguates a base slug against the number of stores already
// holding it or a numbered variant of it. The second "coffee-shop" becomes
// "coffee-shop-2".
func nextSlug(base string, existing int) string {
	if existing == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, existing+1)
}
