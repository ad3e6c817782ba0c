package backup

import "testing"

func TestEscapeValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text untouched", input: "hello world", want: "hello world"},
		{name: "empty string", input: "", want: ""},
		{name: "backslash", input: `a\b`, want: `a\\b`},
		{name: "newline", input: "a\nb", want: `a\nb`},
		{name: "carriage return", input: "a\rb", want: `a\rb`},
		{name: "double quote", input: `say "hi"`, want: `say \"hi\"`},
		{name: "crlf pair", input: "a\r\nb", want: `a\r\nb`},
		{
			// The backslash inserted for the quote must not be re-escaped.
			name:  "backslash before quote",
			input: `\"`,
			want:  `\\\"`,
		},
		{
			name:  "literal backslash-n stays distinct from newline",
			input: `a\nb`,
			want:  `a\\nb`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeValue(tt.input); got != tt.want {
				t.Errorf("escapeValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestUnescapeValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no escapes", input: "plain", want: "plain"},
		{name: "escaped backslash", input: `a\\b`, want: `a\b`},
		{name: "escaped newline", input: `a\nb`, want: "a\nb"},
		{name: "escaped quote", input: `\"hi\"`, want: `"hi"`},
		{
			// An escaped backslash must not swallow the following sequence:
			// \\n is a literal backslash followed by the letter n.
			name:  "escaped backslash then letter n",
			input: `\\n`,
			want:  `\n`,
		},
		{name: "unknown escape keeps character", input: `a\qb`, want: "aqb"},
		{name: "trailing lone backslash kept", input: `abc\`, want: `abc\`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unescapeValue(tt.input); got != tt.want {
				t.Errorf("unescapeValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"simple",
		"multi\nline\r\nwith \"quotes\" and \\slashes\\",
		`already \n escaped-looking text`,
		`trailing backslash \`,
		"\n\r\"\\",
	}

	for _, in := range inputs {
		if got := unescapeValue(escapeValue(in)); got != in {
			t.Errorf("round trip changed %q into %q", in, got)
		}
	}
}
