package requirement

import (
	"regexp"
	"strings"
)

//nolint:gochecknoglobals // compiled once
var (
	backtickRe = regexp.MustCompile("`([^`]+)`")
	quotedRe   = regexp.MustCompile(`["“]([^"“”]{3,})["”]`)
	fileRe     = regexp.MustCompile(`^[\w./-]*\w\.[A-Za-z][A-Za-z0-9]{0,7}$`)
)

//nolint:gochecknoglobals // abbreviations that look like file names
var notFiles = map[string]bool{"e.g": true, "i.e": true, "etc": true, "vs": true}

func firstBacktick(text string) string {
	for _, match := range backtickRe.FindAllStringSubmatch(text, -1) {
		if literal := strings.TrimSpace(match[1]); literal != "" {
			return literal
		}
	}

	return ""
}

// fileTokens returns words with a dotted extension, in order of appearance.
func fileTokens(text string) []string {
	var files []string

	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, "()[]{}<>\"'`,;:!?“”")
		word = strings.TrimRight(word, ".")

		if notFiles[strings.ToLower(word)] || !fileRe.MatchString(word) {
			continue
		}

		files = append(files, word)
	}

	return files
}

// literalTokens are the distinguishing strings used to match a requirement against run events.
func literalTokens(text string) []string {
	var tokens []string

	seen := map[string]bool{}
	add := func(token string) {
		token = strings.ToLower(strings.TrimSpace(token))
		if len(token) < 2 || seen[token] {
			return
		}

		seen[token] = true
		tokens = append(tokens, token)
	}

	for _, match := range backtickRe.FindAllStringSubmatch(text, -1) {
		add(match[1])
	}

	for _, match := range quotedRe.FindAllStringSubmatch(text, -1) {
		add(match[1])
	}

	for _, file := range fileTokens(text) {
		add(file)
	}

	return tokens
}
