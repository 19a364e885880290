package service

import (
	"strings"
	"unicode"
)

// promptRoleMarkers are line prefixes a model could read as a role change
// when user text is embedded in its prompt.
var promptRoleMarkers = []string{
	"system:", "assistant:", "user:", "[system]", "[assistant]",
	"<|system|>", "<|assistant|>", "<|im_start|>",
	"### system", "### assistant", "### instruction",
}

// sanitizePromptInput strips control characters and neutralizes role-marker
// line prefixes in user-written text bound for the model. Only the wire
// copy is sanitized; stored transcripts keep the original content.
func sanitizePromptInput(s string) string {
	// Strip non-printable control characters, keeping whitespace.
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(strings.ToLower(line))
		for _, prefix := range promptRoleMarkers {
			if strings.HasPrefix(trimmed, prefix) {
				lines[i] = "[sanitized] " + line
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}
