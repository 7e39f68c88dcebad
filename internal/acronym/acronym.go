// Package acronym maps subject names to short display codes.
package acronym

import (
	"strconv"
	"strings"
	"unicode"
)

const fallbackLen = 3

// Resolve returns the short code for a subject name.
//
// "JAVA-II" is checked before "JAVA-I" because the latter is a substring of
// the former. Next comes the trimmed text of the first parenthesized group,
// and finally the first three characters upper-cased.
func Resolve(subject string) string {
	upper := strings.ToUpper(subject)
	switch {
	case strings.Contains(upper, "JAVA-II"):
		return "JAVA-II"
	case strings.Contains(upper, "JAVA-I"):
		return "JAVA-I"
	}
	if inner, ok := firstParenthesized(subject); ok {
		return inner
	}
	runes := []rune(subject)
	if len(runes) > fallbackLen {
		runes = runes[:fallbackLen]
	}
	return strings.ToUpper(string(runes))
}

// firstParenthesized returns the text between the first "(" and the next ")".
func firstParenthesized(s string) (string, bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return "", false
	}
	closeIdx := strings.IndexByte(s[open+1:], ')')
	if closeIdx < 0 {
		return "", false
	}
	return strings.TrimSpace(s[open+1 : open+1+closeIdx]), true
}

// Match picks a subject from the list by user input. The input may be a
// 1-based position, an exact acronym or name, or a fragment of either.
func Match(subjects []string, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" || len(subjects) == 0 {
		return "", false
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(subjects) {
			return subjects[n-1], true
		}
	}
	needle := strings.ToLower(input)
	for _, sub := range subjects {
		if needle == strings.ToLower(Resolve(sub)) || needle == strings.ToLower(sub) {
			return sub, true
		}
	}
	for _, sub := range subjects {
		if strings.Contains(strings.ToLower(Resolve(sub)), needle) || strings.Contains(strings.ToLower(sub), needle) {
			return sub, true
		}
	}
	return "", false
}

// Label formats a subject with its code for listings, e.g. "Physics (PHY) [PHY]".
func Label(subject string) string {
	code := Resolve(subject)
	if strings.EqualFold(strings.TrimFunc(subject, unicode.IsSpace), code) {
		return subject
	}
	return subject + " [" + code + "]"
}
