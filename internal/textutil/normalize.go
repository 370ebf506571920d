package textutil

import (
	"regexp"
	"strings"
)

var (
	groupPattern    = regexp.MustCompile(`\(([^()]*)\)`)
	dumpFlagPattern = regexp.MustCompile(`\[(?:!|[abfo]\d*)\]`)
	revisionPattern = regexp.MustCompile(`^(?:rev\s*[0-9a-z.]+|v\s*[0-9][0-9a-z.]*)$`)
	// Extensions always carry a letter; ".2" or ".0" ends a version number.
	extPattern   = regexp.MustCompile(`\.[0-9]{0,3}[a-z][a-z0-9]{0,3}$`)
	spacePattern = regexp.MustCompile(`\s+`)
)

var regionTokens = map[string]struct{}{
	"usa": {}, "europe": {}, "japan": {}, "world": {}, "asia": {}, "australia": {},
	"brazil": {}, "canada": {}, "china": {}, "france": {}, "germany": {}, "hong kong": {},
	"italy": {}, "korea": {}, "netherlands": {}, "spain": {}, "sweden": {}, "taiwan": {},
	"uk": {}, "russia": {}, "scandinavia": {}, "latin america": {},
	"u": {}, "e": {}, "j": {}, "w": {}, "ue": {}, "ju": {}, "jue": {},
}

var languageTokens = map[string]struct{}{
	"en": {}, "ja": {}, "fr": {}, "de": {}, "es": {}, "it": {}, "nl": {}, "pt": {},
	"sv": {}, "no": {}, "da": {}, "fi": {}, "zh": {}, "ko": {}, "ru": {}, "pl": {},
}

// NormalizeTitle reduces a file name or catalog title to the part that
// identifies the game: extension, region and language groups, revision tags,
// and dump flags are removed, the rest is lowercased with collapsed spaces.
func NormalizeTitle(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = extPattern.ReplaceAllString(s, "")
	s = dumpFlagPattern.ReplaceAllString(s, " ")
	s = groupPattern.ReplaceAllStringFunc(s, func(group string) string {
		inner := strings.TrimSpace(group[1 : len(group)-1])
		if isTagGroup(inner) {
			return " "
		}
		return group
	})
	s = strings.ReplaceAll(s, "_", " ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func isTagGroup(inner string) bool {
	if inner == "" {
		return true
	}
	if revisionPattern.MatchString(inner) {
		return true
	}
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		if _, ok := regionTokens[part]; ok {
			continue
		}
		if _, ok := languageTokens[part]; ok {
			continue
		}
		return false
	}
	return true
}
