package roles

import (
	"regexp"
	"strings"
)

// Category groups roles for reporting and fallback content.
type Category string

const (
	CategoryAthens       Category = "Athens"
	CategoryNorthAmerica Category = "North America"
	CategoryMarsColony   Category = "Mars Colony"
	CategoryOther        Category = "Other"
)

var categoryRules = []struct {
	category Category
	pattern  *regexp.Regexp
}{
	{CategoryAthens, regexp.MustCompile(`athen(s|ian)`)},
	{CategoryNorthAmerica, regexp.MustCompile(`north america|united states`)},
	// Letters may not touch the word, so "Marseille" and "Marshall" stay out
	// while keys like "mars_colony" still match.
	{CategoryMarsColony, regexp.MustCompile(`(^|[^a-z])(mars|martians?)([^a-z]|$)`)},
}

// Categorize assigns a role title or key to a Category. Rules are checked
// in order, so a role mentioning both Athens and Mars is Athens.
func Categorize(role string) Category {
	r := strings.ToLower(role)
	for _, c := range categoryRules {
		if c.pattern.MatchString(r) {
			return c.category
		}
	}
	return CategoryOther
}
