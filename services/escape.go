package services

import (
	"strings"
	"unicode/utf16"
)

const hexDigits = "0123456789abcdef"

// EscapeNonASCII replaces every rune above 0x7f with \uXXXX escapes of its UTF-16
// code units. Runes outside the BMP become a surrogate pair.
func EscapeNonASCII(s string) string {
	i := 0
	for i < len(s) && s[i] < 0x80 {
		i++
	}
	if i == len(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	b.WriteString(s[:i])
	for _, r := range s[i:] {
		if r < 0x80 {
			b.WriteRune(r)
			continue
		}
		units := []uint16{uint16(r)}
		if r > 0xffff {
			r1, r2 := utf16.EncodeRune(r)
			units = []uint16{uint16(r1), uint16(r2)}
		}
		for _, u := range units {
			b.WriteString(`\u`)
			b.WriteByte(hexDigits[u>>12&0xf])
			b.WriteByte(hexDigits[u>>8&0xf])
			b.WriteByte(hexDigits[u>>4&0xf])
			b.WriteByte(hexDigits[u&0xf])
		}
	}
	return b.String()
}
