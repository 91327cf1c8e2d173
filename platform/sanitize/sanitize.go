// Package sanitize provides text normalisation for user-provided input.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Encoded tags survive the first pass.
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes free text such as notes, terms and addresses.
func Text(s string) string {
	return StripHTML(s)
}

// TextPtr sanitizes an optional string; blank results become nil.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	out := Text(*s)
	if out == "" {
		return nil
	}
	return &out
}

// Email lowercases and trims an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PostalCode keeps only digits, so "123 45" and "12345" compare equal.
func PostalCode(s string) string {
	return digitsOnly(s)
}

// PostalCodes normalises and de-duplicates a list, dropping empties.
func PostalCodes(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		code := PostalCode(raw)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// OrgNumber normalises a Swedish organisation number to "NNNNNN-NNNN".
func OrgNumber(s string) string {
	d := digitsOnly(s)
	if len(d) == 12 {
		d = d[2:]
	}
	if len(d) != 10 {
		return strings.TrimSpace(s)
	}
	return d[:6] + "-" + d[6:]
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
