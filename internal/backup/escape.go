package backup

import "strings"

// Value escaping for the flat format. The escaper replaces all four target
// bytes in a single pass, which gives the required backslash-first precedence:
// a backslash inserted for \n, \r or " is never itself re-escaped.
var escaper = strings.NewReplacer(
	`\`, `\\`,
	"\n", `\n`,
	"\r", `\r`,
	`"`, `\"`,
)

// escapeValue encodes a raw value for a data row.
func escapeValue(s string) string {
	return escaper.Replace(s)
}

// unescapeValue is the exact inverse of escapeValue. It walks the string once
// so an escaped backslash never swallows the sequence that follows it.
// Unrecognized escape sequences keep the character and drop the backslash.
func unescapeValue(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '"':
			b.WriteByte('"')
		default:
			b.WriteByte(s[i])
		}
	}

	return b.String()
}
