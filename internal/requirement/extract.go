// Package requirement derives obligation statements from run text, tracks their evidence and
// generates verification commands for them.
package requirement

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

//nolint:gochecknoglobals // compiled once
var (
	listMarker   = regexp.MustCompile(`^\s*(?:#+|[-*+•]|\d+[.)]|\[[ xX]\])\s+`)
	labelPrefix  = regexp.MustCompile(`(?i)^(?:task|prompt|goal|objective|requirements?|instructions?|acceptance criteria)\s*:\s*`)
	obligationRe = regexp.MustCompile(`(?i)\b(?:need|needs|have|has) to\b`)
)

//nolint:gochecknoglobals // word lists, effectively const
var (
	imperativeVerbs = wordSet(
		"add", "always", "avoid", "build", "check", "confirm", "create", "delete", "document", "do",
		"don't", "ensure", "fix", "handle", "implement", "include", "install", "keep", "lint", "make",
		"migrate", "move", "never", "refactor", "remove", "rename", "replace", "return", "run",
		"support", "test", "update", "use", "validate", "verify", "write",
	)
	modalCues = wordSet(
		"must", "should", "shall", "ensure", "verify", "run", "required", "mandatory",
	)
)

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, word := range words {
		set[word] = true
	}

	return set
}

// ExtractImperative returns the imperative or obligation sentences of text, deduplicated by
// identity and in order of appearance.
func ExtractImperative(text string) []string {
	var phrases []string

	seen := map[string]bool{}

	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		line = listMarker.ReplaceAllString(line, "")
		line = labelPrefix.ReplaceAllString(line, "")

		for _, sentence := range splitSentences(line) {
			if !isImperative(sentence) {
				continue
			}

			key := types.IdentityKey(sentence)
			if seen[key] {
				continue
			}

			seen[key] = true
			phrases = append(phrases, sentence)
		}
	}

	return phrases
}

// splitSentences breaks a line after '.', '!' or '?' when followed by whitespace or the end of
// the line. Backtick spans are never split.
func splitSentences(line string) []string {
	var (
		sentences []string
		current   strings.Builder
		inCode    bool
	)

	runes := []rune(line)
	for idx, char := range runes {
		current.WriteRune(char)

		switch {
		case char == '`':
			inCode = !inCode
		case inCode:
		case char == '.' || char == '!' || char == '?':
			if idx+1 == len(runes) || unicode.IsSpace(runes[idx+1]) {
				if sentence := strings.TrimSpace(current.String()); sentence != "" {
					sentences = append(sentences, sentence)
				}

				current.Reset()
			}
		}
	}

	if sentence := strings.TrimSpace(current.String()); sentence != "" {
		sentences = append(sentences, sentence)
	}

	return sentences
}

func isImperative(sentence string) bool {
	words := strings.Fields(strings.ToLower(sentence))
	if len(words) < 2 {
		return false
	}

	for idx := range words {
		words[idx] = strings.TrimFunc(words[idx], func(r rune) bool {
			return unicode.IsPunct(r) && r != '\''
		})
	}

	first := words[0]
	if first == "please" && len(words) > 2 {
		first = words[1]
	}

	if imperativeVerbs[first] {
		return true
	}

	for _, word := range words {
		if modalCues[word] {
			return true
		}
	}

	return obligationRe.MatchString(sentence)
}
