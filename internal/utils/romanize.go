package utils

import (
	"regexp"
	"strings"
)

// Revised-Romanization tables for Hangul jamo, simplified: syllables are
// decomposed positionally without assimilation rules.
var (
	chosung = []string{
		"g", "kk", "n", "d", "tt", "r", "m", "b", "pp",
		"s", "ss", "", "j", "jj", "ch", "k", "t", "p", "h",
	}

	jungsung = []string{
		"a", "ae", "ya", "yae", "eo", "e", "yeo", "ye", "o", "wa",
		"wae", "oe", "yo", "u", "wo", "we", "wi", "yu", "eu", "ui", "i",
	}

	jongsung = []string{
		"", "g", "kk", "gs", "n", "nj", "nh", "d", "l", "lg",
		"lm", "lb", "ls", "lt", "lp", "lh", "m", "b", "bs",
		"s", "ss", "ng", "j", "ch", "k", "t", "p", "h",
	}
)

// KoreanToRoman transliterates Hangul syllables to Latin letters and
// leaves every other rune untouched.
func KoreanToRoman(text string) string {
	var b strings.Builder

	for _, r := range text {
		if r >= 0xAC00 && r <= 0xD7A3 {
			syllable := int(r - 0xAC00)
			b.WriteString(chosung[syllable/588])
			b.WriteString(jungsung[(syllable%588)/28])
			b.WriteString(jongsung[syllable%28])
		} else {
			b.WriteRune(r)
		}
	}

	return b.String()
}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	channelCharRe = regexp.MustCompile(`[^a-z0-9_\-]`)
)

// ToSlackChannelName converts free-form text (typically a Korean client
// name) into a valid Slack channel-name fragment: romanized, lowercased,
// restricted to [a-z0-9_-], at most 80 characters.
func ToSlackChannelName(text string) string {
	s := strings.ToLower(KoreanToRoman(text))
	s = whitespaceRe.ReplaceAllString(s, "_")
	s = channelCharRe.ReplaceAllString(s, "")

	if len(s) > 80 {
		s = s[:80]
	}

	return s
}
