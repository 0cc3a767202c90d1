package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeBanner turns raw service bytes into printable text. Invalid UTF-8
// sequences are replaced with U+FFFD and control characters other than
// tab and line breaks are dropped.
func DecodeBanner(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	s := string(raw)
	if !utf8.Valid(raw) {
		decoded, _, err := transform.String(xunicode.UTF8.NewDecoder(), s)
		if err != nil {
			decoded = strings.ToValidUTF8(s, string(utf8.RuneError))
		}
		s = decoded
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return r
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, s)
	return strings.TrimSpace(s)
}

// Truncate cuts s to at most max bytes without splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// SanitizeFilename keeps letters, digits, '-', '_' and '.', replacing the rest.
func SanitizeFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, s)

	maxLength := 50
	if len(s) > maxLength {
		s = s[:maxLength]
	}

	return strings.Trim(s, ".")
}
