package policy

import (
	"time"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
)

// Rule maps a set of ANDed conditions to one action. Rules with multiple
// conditions require every condition to match; a rule always has at least
// one condition when built through RuleBuilder or the boundary translators.
type Rule struct {
	ID          string
	Name        string
	Description string
	Conditions  []Condition
	Action      Action
	Enabled     bool
	Priority    int // ascending: lower evaluates first
	CreatedAt   time.Time
}

// Matches reports whether every condition matches the message. Disabled
// rules and rules without conditions never match.
func (r *Rule) Matches(msg *mailbox.Message, now time.Time) bool {
	if !r.Enabled || len(r.Conditions) == 0 {
		return false
	}
	for _, cond := range r.Conditions {
		if !cond.Matches(msg, now) {
			return false
		}
	}
	return true
}

// MatchesThread reports whether any message in the thread matches. Used for
// thread-level filtering only, never for per-message action planning.
func (r *Rule) MatchesThread(t *mailbox.Thread, now time.Time) bool {
	for i := range t.Messages {
		if r.Matches(&t.Messages[i], now) {
			return true
		}
	}
	return false
}

// LabelingRule applies a label to matching messages. Labeling is additive:
// every matching labeling rule fires, independent of cleanup rules.
type LabelingRule struct {
	ID         string
	Name       string
	Label      string
	Conditions []Condition
	Enabled    bool
}

// Matches reports whether the message should receive the rule's label.
func (r *LabelingRule) Matches(msg *mailbox.Message, now time.Time) bool {
	if !r.Enabled || len(r.Conditions) == 0 {
		return false
	}
	for _, cond := range r.Conditions {
		if !cond.Matches(msg, now) {
			return false
		}
	}
	return true
}
