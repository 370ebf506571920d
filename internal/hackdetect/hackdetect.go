// Package hackdetect flags filenames of translations, hacks, and unofficial
// builds, which can never match an official catalog.
package hackdetect

import (
	"regexp"
	"strings"
)

// Category names the kind of modification.
type Category string

const (
	CategoryNone        Category = ""
	CategoryTranslation Category = "translation"
	CategoryHack        Category = "hack"
	CategoryUnofficial  Category = "unofficial"
)

// Confidence labels, strongest first.
const (
	ConfidenceVeryHigh = "very high"
	ConfidenceHigh     = "high"
	ConfidenceMedium   = "medium"
)

// Classification is the outcome of Classify.
type Classification struct {
	Modified   bool
	Category   Category
	Confidence string
	// Marker is the filename fragment that triggered the match.
	Marker string
}

type group struct {
	category   Category
	confidence string
	patterns   []*regexp.Regexp
	// suppressedBy skips the group when it matches, so official revisions
	// and prototypes are not reported.
	suppressedBy *regexp.Regexp
}

// Groups are evaluated in order; the first match wins.
var groups = []group{
	{
		category:   CategoryTranslation,
		confidence: ConfidenceVeryHigh,
		patterns: compile(
			`\[t[+\-][a-z]*[^\]]*\]`,
			`\btranslat(?:ed|ion)\b`,
			`\(t[+\-][a-z]{2,}[^)]*\)`,
			`\b(?:eng|english) (?:patch|translation)\b`,
		),
	},
	{
		category:   CategoryHack,
		confidence: ConfidenceHigh,
		patterns: compile(
			`\[h[0-9]*[a-z]?\]`,
			`\[h[0-9]*[a-z]? [^\]]*\]`,
			`\b(?:rom ?)?hack(?:ed)?\b`,
			`\bimprovement\b`,
			`\bpatched\b`,
			`\bmsu-?1\b`,
			`\bredux\b`,
		),
	},
	{
		category:   CategoryUnofficial,
		confidence: ConfidenceMedium,
		patterns: compile(
			`\bbeta\s*\d*\b`,
			`\bdemo\b`,
			`\bwip\b`,
			`\[v\d+(?:\.\d+)*[a-z]?\]`,
			`\bver(?:sion)?\.?\s*\d+(?:\.\d+)+`,
		),
		suppressedBy: regexp.MustCompile(`\brev(?:\s*(?:[0-9]+|[a-z]))?\b|\bproto(?:type)?\b`),
	},
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// Classify inspects a file name (not a path) and reports whether it names a
// modified dump.
func Classify(filename string) Classification {
	name := strings.ToLower(filename)
	for _, g := range groups {
		if g.suppressedBy != nil && g.suppressedBy.MatchString(name) {
			continue
		}
		for _, re := range g.patterns {
			if marker := re.FindString(name); marker != "" {
				return Classification{
					Modified:   true,
					Category:   g.category,
					Confidence: g.confidence,
					Marker:     marker,
				}
			}
		}
	}
	return Classification{}
}
