package types

import (
	"strings"
	"unicode"
)

// Status is the verification state of a requirement.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusSatisfied Status = "satisfied"
	StatusViolated  Status = "violated"
)

// Rank orders statuses by precedence: violated > satisfied > unknown.
func (s Status) Rank() int {
	switch s {
	case StatusViolated:
		return 2
	case StatusSatisfied:
		return 1
	case StatusUnknown:
		return 0
	}

	return 0
}

// Worse returns whichever status takes precedence.
func Worse(a, b Status) Status {
	if b.Rank() > a.Rank() {
		return b
	}

	if a == "" {
		return StatusUnknown
	}

	return a
}

// Requirement is one obligation tracked through a run. Evidence holds event ids, in first-seen
// order, without duplicates.
type Requirement struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Status   Status   `json:"status"`
	Evidence []string `json:"evidence"`
}

// Key is the identity used to merge requirements: case folded, whitespace collapsed, trailing
// punctuation removed.
func (r Requirement) Key() string {
	return IdentityKey(r.Text)
}

// IdentityKey normalizes requirement text into its identity form.
func IdentityKey(text string) string {
	key := strings.ToLower(strings.Join(strings.Fields(text), " "))

	return strings.TrimRightFunc(key, func(r rune) bool {
		return unicode.IsPunct(r) && r != '`' && r != '"' && r != ')'
	})
}

// AddEvidence appends an event id unless already present.
func (r *Requirement) AddEvidence(ids ...string) {
	for _, id := range ids {
		if id == "" || r.HasEvidence(id) {
			continue
		}

		r.Evidence = append(r.Evidence, id)
	}
}

// HasEvidence reports whether the id is already recorded.
func (r *Requirement) HasEvidence(id string) bool {
	for _, existing := range r.Evidence {
		if existing == id {
			return true
		}
	}

	return false
}
