package rules

import (
	"log/slog"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

// Apply tests every rule against the log in rule order and returns the matching labels without
// duplicates. Matching does not stop at the first hit. Rules built as literals are compiled here;
// invalid ones are dropped with a warning.
func Apply(log types.NormalizedLog, rules []Rule) []string {
	labels := []string{}
	seen := map[string]bool{}

	for idx, rule := range rules {
		if rule.re == nil {
			if err := rule.compile(); err != nil {
				slog.Warn("dropping failure rule", "index", idx, "label", rule.Label, "error", err)

				continue
			}
		}

		if seen[rule.Label] || !matches(rule, log) {
			continue
		}

		seen[rule.Label] = true
		labels = append(labels, rule.Label)
	}

	return labels
}

func matches(rule Rule, log types.NormalizedLog) bool {
	if rule.Scope != ScopeEvents && rule.MatchString(log.PlainText) {
		return true
	}

	if rule.Scope == ScopeEvents || rule.Scope == ScopeAll {
		for _, event := range log.Events {
			if rule.MatchString(event.Text()) {
				return true
			}
		}
	}

	return false
}

// Hints returns the hints of every rule whose label is in labels, in rule order, with repeated
// hint text collapsed.
func Hints(labels []string, rules []Rule) []string {
	wanted := make(map[string]bool, len(labels))
	for _, label := range labels {
		wanted[label] = true
	}

	hints := []string{}
	seen := map[string]bool{}

	for _, rule := range rules {
		if !wanted[rule.Label] || rule.Hint == "" || seen[rule.Hint] {
			continue
		}

		seen[rule.Hint] = true
		hints = append(hints, rule.Hint)
	}

	return hints
}

// Labels lists the distinct configured labels in rule order.
func Labels(rules []Rule) []string {
	labels := []string{}
	seen := map[string]bool{}

	for _, rule := range rules {
		if !seen[rule.Label] {
			seen[rule.Label] = true
			labels = append(labels, rule.Label)
		}
	}

	return labels
}
