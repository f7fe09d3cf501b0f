package task

import (
	"fmt"
	"regexp"
	"strings"
)

const maxSlugLength = 50

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug converts a title to a URL-friendly slug.
func GenerateSlug(title string) string {
	slug := strings.ToLower(title)
	slug = nonAlphanumeric.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugLength {
		truncated := slug[:maxSlugLength]
		// Only trim to last hyphen if we cut mid-word.
		if slug[maxSlugLength] != '-' {
			if idx := strings.LastIndex(truncated, "-"); idx > 0 {
				truncated = truncated[:idx]
			}
		}
		slug = strings.TrimRight(truncated, "-")
	}

	return slug
}

// GenerateFilename creates a task filename from an id and slug. Numeric ids
// are zero-padded to three digits so directory listings sort naturally.
func GenerateFilename(id, slug string) string {
	const padWidth = 3
	if isDigits(id) && len(id) < padWidth {
		id = strings.Repeat("0", padWidth-len(id)) + id
	}
	if slug == "" {
		return id + ".md"
	}
	return fmt.Sprintf("%s-%s.md", id, slug)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
