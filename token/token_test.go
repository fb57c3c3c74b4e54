package token

import "testing"

func TestKeyWordsReclassify(t *testing.T) {
	tests := []struct {
		lexeme string
		want   Type
	}{
		{"let", LET},
		{"global", GLOBAL},
		{"if", IF},
		{"then", THEN},
		{"else", ELSE},
		{"while", WHILE},
		{"fn", FN},
		{"and", AND},
		{"or", OR},
		{"not", NOT},
		{"true", TRUE},
		{"false", FALSE},
		{"null", NULL},
	}

	for _, tt := range tests {
		got, ok := KeyWords[tt.lexeme]
		if !ok {
			t.Fatalf("KeyWords[%q] missing", tt.lexeme)
		}
		if got != tt.want {
			t.Errorf("KeyWords[%q] = %v, want %v", tt.lexeme, got, tt.want)
		}
	}
}

func TestKeyWordsDoesNotMatchIdentifiers(t *testing.T) {
	for _, name := range []string{"letter", "globalize", "x", "iffy"} {
		if _, ok := KeyWords[name]; ok {
			t.Errorf("KeyWords[%q] unexpectedly matched a reserved word", name)
		}
	}
}

func TestTokenString(t *testing.T) {
	tok := Token{Type: NUMBER, Lexeme: "42", Literal: float64(42)}
	if tok.String() != `Token{NUMBER "42"}` {
		t.Errorf("String() = %q", tok.String())
	}
}
