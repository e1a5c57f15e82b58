package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const censored = "[censored]"

// replacements maps words that must not appear on the public Hall of Fame
// to the text shown instead.
var replacements = map[string]string{
	"fuck":         "fudge",
	"shit":         "shoot",
	"damn":         "dang",
	"hell":         "heck",
	"ass":          "butt",
	"bitch":        "jerk",
	"bastard":      "jerk",
	"crap":         "crud",
	"piss":         "ticked",
	"cock":         censored,
	"dick":         "jerk",
	"pussy":        censored,
	"tits":         censored,
	"whore":        censored,
	"slut":         censored,
	"fag":          censored,
	"retard":       censored,
	"nigger":       censored,
	"nigga":        censored,
	"spic":         censored,
	"chink":        censored,
	"kike":         censored,
	"motherfucker": "mother-trucker",
	"goddamn":      "gosh-dang",
	"asshole":      "jerk",
	"dumbass":      "dummy",
	"jackass":      "jerk",
	"bullshit":     "baloney",
	"horseshit":    "nonsense",
	"dipshit":      "dummy",
	"shithead":     "jerk",
	"dickhead":     "jerk",
	"prick":        "jerk",
	"douche":       "jerk",
	"douchebag":    "jerk",
	"nazi":         censored,
}

// ProfanityFilter replaces profanity in player-written text such as
// character names and bios.
type ProfanityFilter struct {
	pattern *regexp.Regexp
}

// NewProfanityFilter compiles the word list into a single pattern. Longer
// words come first so "asshole" wins over "ass".
func NewProfanityFilter() *ProfanityFilter {
	words := make([]string, 0, len(replacements))
	for w := range replacements {
		words = append(words, regexp.QuoteMeta(w))
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return &ProfanityFilter{
		pattern: regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)(s?)\b`),
	}
}

// FilterText replaces every listed word, keeping the original casing and a
// trailing plural s.
func (pf *ProfanityFilter) FilterText(text string) string {
	lower := cases.Lower(language.English)
	return pf.pattern.ReplaceAllStringFunc(text, func(match string) string {
		parts := pf.pattern.FindStringSubmatch(match)
		word, plural := parts[1], parts[2]
		replacement, ok := replacements[lower.String(word)]
		if !ok {
			return match
		}
		if replacement == censored {
			return censored
		}
		return preserveCase(word, replacement) + plural
	})
}

// ContainsProfanity reports whether the text contains a listed word.
func (pf *ProfanityFilter) ContainsProfanity(text string) bool {
	return pf.pattern.MatchString(text)
}

// CleanDisplayText prepares free text for public display: whitespace is
// collapsed, profanity replaced and the result cut to maxRunes.
func (pf *ProfanityFilter) CleanDisplayText(text string, maxRunes int) string {
	text = strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
	text = pf.FilterText(text)
	if maxRunes > 0 && utf8.RuneCountInString(text) > maxRunes {
		text = strings.TrimSpace(string([]rune(text)[:maxRunes]))
	}
	return text
}

// preserveCase applies the case pattern of the original word to the replacement.
func preserveCase(original, replacement string) string {
	title := cases.Title(language.English)
	switch {
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return strings.ToLower(replacement)
	case title.String(strings.ToLower(original)) == original:
		return title.String(replacement)
	}

	// mixed case: copy the case character by character
	orig := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}
