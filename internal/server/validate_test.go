package server

import (
	"strings"
	"testing"
)

// TestValidateWord covers the length bounds and the injection denylist.
func TestValidateWord(t *testing.T) {
	tests := []struct {
		name      string
		word      string
		wantValid bool
	}{
		{name: "simple word", word: "hello", wantValid: true},
		{name: "project name", word: "river", wantValid: true},
		{name: "single character", word: "a", wantValid: true},
		{name: "fifteen characters", word: strings.Repeat("x", 15), wantValid: true},
		{name: "hyphen and punctuation allowed", word: "well-known!", wantValid: true},
		{name: "empty word", word: "", wantValid: false},
		{name: "sixteen characters", word: strings.Repeat("x", 16), wantValid: false},
		{name: "script tag", word: "<script>", wantValid: false},
		{name: "angle bracket", word: "a<b", wantValid: false},
		{name: "script in any case", word: "ScRiPt", wantValid: false},
		{name: "event handler", word: "onclick", wantValid: false},
		{name: "javascript scheme", word: "javascript:alert", wantValid: false},
		{name: "data scheme", word: "data:text", wantValid: false},
		{name: "backslash escape", word: `a\A`, wantValid: false},
		{name: "html entity", word: "&#x41;", wantValid: false},
		{name: "eval call", word: "eval(x)", wantValid: false},
		{name: "dom access", word: "window.name", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validateWord(tt.word, 15)
			if valid := msg == ""; valid != tt.wantValid {
				t.Errorf("validateWord(%q) valid = %v (message %q), want %v",
					tt.word, valid, msg, tt.wantValid)
			}
		})
	}
}

// TestValidateWordLengthByRunes verifies length is counted in characters,
// not bytes, so multibyte words are not unfairly rejected.
func TestValidateWordLengthByRunes(t *testing.T) {
	word := strings.Repeat("é", 15) // 30 bytes, 15 characters
	if msg := validateWord(word, 15); msg != "" {
		t.Errorf("validateWord rejected a 15-rune word: %s", msg)
	}
}
