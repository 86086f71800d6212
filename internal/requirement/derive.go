package requirement

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/airnub/speckit-internal-sub001/internal/normalize"
	"github.com/airnub/speckit-internal-sub001/internal/types"
)

// Derive extracts requirements from the prompt, or from the detected prompt, or from the whole
// plain text when no prompt can be found. Every requirement starts as unknown.
func Derive(log types.NormalizedLog, prompt string) []types.Requirement {
	text := prompt
	if text == "" {
		text = normalize.DetectPrompt(log)
	}

	if text == "" {
		text = log.PlainText
	}

	phrases := ExtractImperative(text)
	reqs := make([]types.Requirement, 0, len(phrases))

	for _, phrase := range phrases {
		reqs = append(reqs, types.Requirement{
			ID:       ID(phrase),
			Text:     phrase,
			Status:   types.StatusUnknown,
			Evidence: []string{},
		})
	}

	return reqs
}

// ID is derived from the identity key, so identical text always yields the same id.
func ID(text string) string {
	sum := sha256.Sum256([]byte(types.IdentityKey(text)))

	return "REQ-" + hex.EncodeToString(sum[:4])
}

// Combine merges requirement sets by identity. Evidence is unioned and the status with the
// highest precedence wins. The first occurrence fixes id, text and position.
func Combine(sets ...[]types.Requirement) []types.Requirement {
	var merged []types.Requirement

	index := map[string]int{}

	for _, set := range sets {
		for _, req := range set {
			key := req.Key()

			pos, ok := index[key]
			if !ok {
				req.Evidence = append([]string{}, req.Evidence...)
				if req.Status == "" {
					req.Status = types.StatusUnknown
				}

				index[key] = len(merged)
				merged = append(merged, req)

				continue
			}

			target := &merged[pos]
			target.Status = types.Worse(target.Status, req.Status)
			target.AddEvidence(req.Evidence...)
		}
	}

	if merged == nil {
		return []types.Requirement{}
	}

	return merged
}
