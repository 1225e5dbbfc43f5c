package strings

import (
	"strings"
)

// asciiCaseBit is the bit separating ASCII lower and upper case letters.
const asciiCaseBit = 0x20

// ASCIIPascalCase converts a snake_case or _private identifier to PascalCase.
// Underscores are removed, the first letter and every letter following an
// underscore are upper-cased. Only ASCII letters change case; other bytes
// (including multi-byte UTF-8 sequences) are copied unchanged.
//
// prefix, when non-zero, is written before the converted name. The result is
// built in a single allocation of at most len(s)+1 bytes.
func ASCIIPascalCase(s string, prefix byte) string {
	var b strings.Builder
	b.Grow(len(s) + 1)
	if prefix != 0 {
		b.WriteByte(prefix)
	}

	upperNext := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c &^= asciiCaseBit
		}
		upperNext = false
		b.WriteByte(c)
	}
	return b.String()
}
