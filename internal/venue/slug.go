package venue

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	MaxSlugLength   = 48
	MaxSlugAttempts = 10
	fallbackSlug    = "venue"
)

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces     = regexp.MustCompile(`\s+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// BaseSlug derives a URL slug from a venue name. The result only contains
// [a-z0-9-], has no leading, trailing or doubled hyphens and is at most max long.
func BaseSlug(name string, max int) string {
	if max <= 0 {
		max = MaxSlugLength
	}

	s := strings.ToLower(name)
	s = slugDisallowed.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	if len(s) > max {
		s = s[:max]
	}
	s = strings.Trim(s, "-")

	if s == "" {
		return fallbackSlug
	}
	return s
}

// SlugCandidates lists the slugs tried for base, in order: base, base-2 … base-10.
// Suffixed candidates shorten base so every candidate stays within MaxSlugLength.
func SlugCandidates(base string) []string {
	candidates := make([]string, 0, MaxSlugAttempts)
	candidates = append(candidates, base)
	for n := 2; n <= MaxSlugAttempts; n++ {
		suffix := "-" + strconv.Itoa(n)
		stem := base
		if len(stem)+len(suffix) > MaxSlugLength {
			stem = strings.TrimRight(stem[:MaxSlugLength-len(suffix)], "-")
		}
		candidates = append(candidates, stem+suffix)
	}
	return candidates
}
