package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize trims the string and collapses every run of whitespace
// into a single space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// StripControl removes control and format runes that are not whitespace.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return r
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

func NormalizeDescription(s string) string {
	return TrimAndNormalize(StripControl(s))
}

// NormalizeID trims identifiers copied from headers or paths.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}
