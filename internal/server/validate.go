// Package server validates contributed words before they can reach the
// queue, rejecting markup and script injection attempts.
package server

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// dangerousPatterns is the substring denylist applied to lowercased
// words. Contributions are rendered into every visitor's page, so
// anything that could smuggle markup, a handler attribute, a protocol
// scheme, or an escape sequence is refused outright.
var dangerousPatterns = []string{
	"<", ">", "script", "onclick", "onerror", "onload",
	"javascript:", "data:", "vbscript:",
	`\`, "&quot;", "&#", `\u`, `\x`,
	"eval(", "settimeout", "setinterval",
	"document.", "window.",
}

// validateWord checks a contributed word against the length bounds and
// the denylist. It returns an empty string when the word is acceptable,
// otherwise a user-facing rejection message.
func validateWord(word string, maxLength int) string {
	n := utf8.RuneCountInString(word)
	if n < 1 || n > maxLength {
		return fmt.Sprintf("Word must be between 1 and %d characters", maxLength)
	}

	lowered := strings.ToLower(word)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowered, pattern) {
			return "Invalid word format"
		}
	}
	return ""
}
