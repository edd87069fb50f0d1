package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLexBasic(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "empty line",
			in:   "",
			want: nil,
		},
		{
			name: "single mnemonic",
			in:   "halt",
			want: []string{"halt"},
		},
		{
			name: "mnemonic and operand",
			in:   "push 1",
			want: []string{"push", "1"},
		},
		{
			name: "register pair with punctuation tokens",
			in:   "add A,B",
			want: []string{"add", "A", ",", "B"},
		},
		{
			name: "label colon",
			in:   "loop:",
			want: []string{"loop", ":"},
		},
		{
			name: "bracketed address",
			in:   "mov [A],B",
			want: []string{"mov", "[", "A", "]", ",", "B"},
		},
		{
			name: "quoted string kept whole, quotes retained",
			in:   `int "hello"`,
			want: []string{"int", `"hello"`},
		},
		{
			// The escaped quote doesn't end the string early, and the
			// character passes through raw (no unescaping).
			name: "escaped quote inside string",
			in:   `int "a\"b"`,
			want: []string{"int", `"a"b"`},
		},
		{
			name: "parenthesised group kept whole, delimiters retained",
			in:   "clf (A,B)",
			want: []string{"clf", "(A,B)"},
		},
		{
			name: "nested parens balance before closing",
			in:   "clf (A,(B))",
			want: []string{"clf", "(A,(B))"},
		},
		{
			name: "trailing line comment stripped",
			in:   "halt // stop here",
			want: []string{"halt"},
		},
		{
			name: "leading line comment yields nothing",
			in:   "// just a comment",
			want: nil,
		},
		{
			name: "extra whitespace collapses",
			in:   "  push   1   ",
			want: []string{"push", "1"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Lex(tc.in)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Lex(%q) mismatch (-want +got):\n%s", tc.in, diff)
			}
		})
	}
}

func TestIsSpace(t *testing.T) {
	for _, c := range []byte{' ', '\t', '\n', '\r', '\v', '\f'} {
		if !isSpace(c) {
			t.Errorf("isSpace(%q) = false, want true", c)
		}
	}
	if isSpace('a') {
		t.Errorf("isSpace('a') = true, want false")
	}
}

func TestIsSpecial(t *testing.T) {
	for _, c := range []byte{'[', ']', ',', ':'} {
		if !isSpecial(c) {
			t.Errorf("isSpecial(%q) = false, want true", c)
		}
	}
	if isSpecial('a') {
		t.Errorf("isSpecial('a') = true, want false")
	}
}
