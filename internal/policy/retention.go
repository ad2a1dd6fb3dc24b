package policy

import (
	"time"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
)

// RetentionRule overrides the retention window for messages matching its
// condition. Rules are checked in order; the first match wins.
type RetentionRule struct {
	Condition     Condition
	RetentionDays int
}

// RetentionPolicy decides how long different kinds of mail are kept.
type RetentionPolicy struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	Rules                []RetentionRule `json:"rules,omitempty"`
	DefaultRetentionDays int             `json:"default_retention_days"`
	Enabled              bool            `json:"enabled"`
}

// RetentionDays resolves the retention window for a message. A disabled
// policy always resolves to the default window.
func (p *RetentionPolicy) RetentionDays(msg *mailbox.Message, now time.Time) int {
	if !p.Enabled {
		return p.DefaultRetentionDays
	}
	for _, rule := range p.Rules {
		if rule.Condition != nil && rule.Condition.Matches(msg, now) {
			return rule.RetentionDays
		}
	}
	return p.DefaultRetentionDays
}

// ShouldDelete reports whether the message has outlived its resolved
// retention window.
func (p *RetentionPolicy) ShouldDelete(msg *mailbox.Message, now time.Time) bool {
	return msg.AgeDays(now) > p.RetentionDays(msg, now)
}
