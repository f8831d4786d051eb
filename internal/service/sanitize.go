package service

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minMessageLength = 10
	maxMessageLength = 1000
)

var (
	angleBrackets    = regexp.MustCompile(`[<>]`)
	javascriptScheme = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerAttr = regexp.MustCompile(`(?i)on\w+=`)

	// RE2's \s is ASCII only; the class also excludes \v, Unicode space
	// separators (U+00A0, U+2028, U+2029, ...) and U+FEFF.
	emailPattern = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)
)

// Sanitize trims s and strips angle brackets, "javascript:" and inline
// event handler prefixes such as "onclick=". It is a denylist and does not
// make text safe for every HTML context.
//
// The steps repeat until nothing changes, so Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	for {
		next := sanitizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func sanitizeOnce(s string) string {
	s = strings.TrimFunc(s, isTrimSpace)
	s = angleBrackets.ReplaceAllString(s, "")
	s = javascriptScheme.ReplaceAllString(s, "")
	s = eventHandlerAttr.ReplaceAllString(s, "")
	return s
}

// isTrimSpace reports whether r is white space or a line terminator,
// including the byte order mark U+FEFF but not U+0085.
func isTrimSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}

// ValidEmail reports whether s looks like local@domain.tld.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidMessageLength reports whether s has between 10 and 1000 characters.
func ValidMessageLength(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= minMessageLength && n <= maxMessageLength
}
