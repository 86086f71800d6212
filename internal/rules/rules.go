// Package rules labels known failure signatures in a normalized log using externally configured
// pattern rules.
package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/farcloser/primordium/fault"
	"gopkg.in/yaml.v3"
)

// Scope selects what a rule is matched against.
type Scope string

const (
	ScopeText   Scope = "text"   // the plain text of the log
	ScopeEvents Scope = "events" // each event's payload text
	ScopeAll    Scope = "all"    // both
)

var (
	errMissingPattern = errors.New("missing pattern")
	errMissingLabel   = errors.New("missing label")
	errUnknownFlag    = errors.New("unknown regex flag")
	errUnknownScope   = errors.New("unknown scope")
	errBadDocument    = errors.New("rule document must be a list or contain a rules list")
)

// Rule maps a regular expression to a label and a remediation hint.
type Rule struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Flags   string `json:"flags"   yaml:"flags"`
	Label   string `json:"label"   yaml:"label"`
	Hint    string `json:"hint"    yaml:"hint"`
	Scope   Scope  `json:"scope"   yaml:"scope"`

	re *regexp.Regexp
}

// New validates and compiles a rule.
func New(pattern, flags, label, hint string, scope Scope) (Rule, error) {
	rule := Rule{Pattern: pattern, Flags: flags, Label: label, Hint: hint, Scope: scope}

	return rule, rule.compile()
}

func (r *Rule) compile() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return errMissingPattern
	}

	if strings.TrimSpace(r.Label) == "" {
		return errMissingLabel
	}

	switch r.Scope {
	case "":
		r.Scope = ScopeText
	case ScopeText, ScopeEvents, ScopeAll:
	default:
		return fmt.Errorf("%w %q", errUnknownScope, r.Scope)
	}

	inline, err := inlineFlags(r.Flags)
	if err != nil {
		return err
	}

	compiled, err := regexp.Compile(inline + r.Pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
	}

	r.re = compiled

	return nil
}

// inlineFlags converts a flag string in the usual `gimsuy` notation to RE2 inline flags. Flags
// without an RE2 meaning are accepted and ignored.
func inlineFlags(flags string) (string, error) {
	var inline strings.Builder

	for _, flag := range flags {
		switch flag {
		case 'i', 'm', 's':
			if !strings.ContainsRune(inline.String(), flag) {
				inline.WriteRune(flag)
			}
		case 'g', 'u', 'y', 'd':
		default:
			return "", fmt.Errorf("%w %q", errUnknownFlag, flag)
		}
	}

	if inline.Len() == 0 {
		return "", nil
	}

	return "(?" + inline.String() + ")", nil
}

// MatchString reports whether the rule's pattern matches text. A rule not built by New or Parse is
// compiled on the fly; an invalid one never matches.
func (r Rule) MatchString(text string) bool {
	if r.re == nil && r.compile() != nil {
		return false
	}

	return r.re.MatchString(text)
}

// Parse reads a YAML or JSON rule document: either a list of rules or a mapping with a rules
// list. Only a malformed document is an error; invalid entries are dropped with a warning so one
// bad rule cannot invalidate the rest.
func Parse(data []byte) ([]Rule, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrInvalidJSON, err)
	}

	if len(node.Content) == 0 {
		return []Rule{}, nil
	}

	items, err := ruleNodes(node.Content[0])
	if err != nil {
		return nil, err
	}

	rules := make([]Rule, 0, len(items))

	for idx, item := range items {
		var entry Rule
		if err := item.Decode(&entry); err != nil {
			slog.Warn("dropping failure rule", "index", idx, "error", err)

			continue
		}

		if err := entry.compile(); err != nil {
			slog.Warn("dropping failure rule", "index", idx, "label", entry.Label, "error", err)

			continue
		}

		rules = append(rules, entry)
	}

	return rules, nil
}

// ruleNodes returns the entry nodes of a top-level list or of the rules key of a mapping.
func ruleNodes(root *yaml.Node) ([]*yaml.Node, error) {
	switch root.Kind {
	case yaml.SequenceNode:
		return root.Content, nil
	case yaml.MappingNode:
		for idx := 0; idx+1 < len(root.Content); idx += 2 {
			if root.Content[idx].Value != "rules" {
				continue
			}

			if list := root.Content[idx+1]; list.Kind == yaml.SequenceNode {
				return list.Content, nil
			}
		}

		return nil, errBadDocument
	default:
		return nil, errBadDocument
	}
}

// Load reads and parses a rule file. An unreadable or malformed file yields an empty rule set and
// a warning.
func Load(path string) []Rule {
	data, err := os.ReadFile(path) //nolint:gosec // rule files are user-specified
	if err != nil {
		slog.Warn("cannot read failure rules", "path", path, "error", fmt.Errorf("%w: %w", fault.ErrReadFailure, err))

		return []Rule{}
	}

	rules, err := Parse(data)
	if err != nil {
		slog.Warn("cannot parse failure rules", "path", path, "error", err)

		return []Rule{}
	}

	return rules
}
