package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
)

// LegacyRule is the flat keyword-style rule payload older clients and the
// first-generation database rows still emit (sender_domain=, older_than_days=
// and friends, all optional, action as a bare string). It exists only at the
// boundary; TranslateLegacyRule normalizes it into the structured Rule and
// nothing in the engine consumes LegacyRule directly.
type LegacyRule struct {
	Name          string  `json:"name,omitempty" yaml:"name,omitempty"`
	Sender        string  `json:"sender,omitempty" yaml:"sender,omitempty"`
	SenderDomain  string  `json:"sender_domain,omitempty" yaml:"sender_domain,omitempty"`
	Subject       string  `json:"subject_contains,omitempty" yaml:"subject_contains,omitempty"`
	OlderThanDays int     `json:"older_than_days,omitempty" yaml:"older_than_days,omitempty"`
	LargerThanMB  float64 `json:"larger_than_mb,omitempty" yaml:"larger_than_mb,omitempty"`
	Category      string  `json:"category,omitempty" yaml:"category,omitempty"`
	Importance    string  `json:"importance,omitempty" yaml:"importance,omitempty"`
	Label         string  `json:"label,omitempty" yaml:"label,omitempty"`
	Action        string  `json:"action" yaml:"action"`
	ActionLabel   string  `json:"action_label,omitempty" yaml:"action_label,omitempty"`
	Priority      int     `json:"priority,omitempty" yaml:"priority,omitempty"`
	Disabled      bool    `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// TranslateLegacyRule converts a flat legacy payload into a structured Rule
// via the builder, so legacy input goes through exactly the same validation
// as native rules. Unknown actions and payloads without any condition fail.
func TranslateLegacyRule(lr LegacyRule, now time.Time) (Rule, error) {
	b := NewRuleBuilder()
	b.clock = func() time.Time { return now }

	if lr.Sender != "" {
		b.SenderMatches(lr.Sender)
	}
	if lr.SenderDomain != "" {
		b.SenderMatches(lr.SenderDomain)
	}
	if lr.Subject != "" {
		b.SubjectContains(lr.Subject)
	}
	if lr.OlderThanDays > 0 {
		b.OlderThanDays(lr.OlderThanDays)
	}
	if lr.LargerThanMB > 0 {
		b.LargerThanMB(lr.LargerThanMB)
	}
	if lr.Category != "" {
		b.Category(mailbox.Category(strings.ToLower(lr.Category)))
	}
	if lr.Importance != "" {
		b.ImportanceIs(mailbox.Importance(strings.ToLower(lr.Importance)))
	}
	if lr.Label != "" {
		b.Label(lr.Label)
	}

	kind := ActionKind(strings.ToLower(strings.TrimSpace(lr.Action)))
	if !ValidActionKind(kind) {
		return Rule{}, fmt.Errorf("legacy rule %q: unknown action %q", lr.Name, lr.Action)
	}
	switch kind {
	case ActionApplyLabel:
		b.ApplyLabel(lr.ActionLabel)
	case ActionRemoveLabel:
		b.RemoveLabel(lr.ActionLabel)
	default:
		b.setAction(Action{Kind: kind})
	}

	if lr.Name != "" {
		b.WithName(lr.Name)
	}
	if lr.Priority > 0 {
		b.WithPriority(lr.Priority)
	}
	b.Enabled(!lr.Disabled)

	rule, err := b.Build()
	if err != nil {
		return Rule{}, fmt.Errorf("legacy rule %q: %w", lr.Name, err)
	}
	return rule, nil
}
