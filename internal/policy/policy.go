package policy

import (
	"sort"
	"time"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
)

// Policy is the complete cleanup configuration for one user's mailbox:
// ordered cleanup rules, additive labeling rules, an optional retention
// policy, and the auto-archive heuristics. A Policy is read-only for the
// duration of a run; only Rename and SetEnabled mutate it afterwards.
type Policy struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	CleanupRules  []Rule           `json:"cleanup_rules,omitempty"`
	LabelingRules []LabelingRule   `json:"labeling_rules,omitempty"`
	Retention     *RetentionPolicy `json:"retention,omitempty"`

	AutoArchivePromotions bool `json:"auto_archive_promotions"`
	AutoArchiveSocial     bool `json:"auto_archive_social"`
	AutoMarkReadOld       bool `json:"auto_mark_read_old"`
	OldThresholdDays      int  `json:"old_threshold_days"`

	// DryRun forces dry-run regardless of how the executor is invoked.
	DryRun  bool `json:"dry_run"`
	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActionsForMessage resolves the full action list for a message.
//
// The guardrail comes first and is absolute: starred messages and messages
// labeled IMPORTANT are never acted on, no matter what the rules, retention
// policy, or heuristics say. After that, cleanup rules run in ascending
// priority order and stop at the first delete/archive match; labeling rules
// are additive; retention and the auto-archive heuristics append last.
// Duplicate actions are not suppressed here; adapter idempotency owns that.
func (p *Policy) ActionsForMessage(msg *mailbox.Message, now time.Time) []Action {
	if !p.Enabled {
		return nil
	}
	if msg.Starred || msg.HasLabel(mailbox.LabelImportant) {
		return nil
	}

	var actions []Action

	rules := make([]*Rule, 0, len(p.CleanupRules))
	for i := range p.CleanupRules {
		rules = append(rules, &p.CleanupRules[i])
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })

	for _, rule := range rules {
		if !rule.Matches(msg, now) {
			continue
		}
		actions = append(actions, rule.Action)
		if rule.Action.Terminal() {
			break
		}
	}

	for i := range p.LabelingRules {
		if p.LabelingRules[i].Matches(msg, now) {
			actions = append(actions, Action{Kind: ActionApplyLabel, Label: p.LabelingRules[i].Label})
		}
	}

	if p.Retention != nil && p.Retention.ShouldDelete(msg, now) {
		actions = append(actions, Action{Kind: ActionDelete})
	}

	old := msg.AgeDays(now) > p.OldThresholdDays
	if p.AutoArchivePromotions && msg.Category == mailbox.CategoryPromotions && old {
		actions = append(actions, Action{Kind: ActionArchive})
	}
	if p.AutoArchiveSocial && msg.Category == mailbox.CategorySocial && old {
		actions = append(actions, Action{Kind: ActionArchive})
	}
	if p.AutoMarkReadOld && msg.Unread && old {
		actions = append(actions, Action{Kind: ActionMarkRead})
	}

	return actions
}

// MessageActions pairs one message with its planned actions inside a
// thread analysis.
type MessageActions struct {
	MessageID string    `json:"message_id"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	Date      time.Time `json:"date"`
	Actions   []Action  `json:"actions"`
}

// ThreadAnalysis is a read-only projection of what the policy would do to
// each message of a thread. Producing it never mutates mailbox state.
type ThreadAnalysis struct {
	ThreadID     string           `json:"thread_id"`
	Subject      string           `json:"subject"`
	MessageCount int              `json:"message_count"`
	TotalActions int              `json:"total_actions"`
	Messages     []MessageActions `json:"messages,omitempty"`
}

// AnalyzeThread computes the per-message action plan for a whole thread.
func (p *Policy) AnalyzeThread(t *mailbox.Thread, now time.Time) ThreadAnalysis {
	analysis := ThreadAnalysis{
		ThreadID:     t.ID,
		Subject:      t.Subject(),
		MessageCount: t.MessageCount(),
	}
	for i := range t.Messages {
		msg := &t.Messages[i]
		actions := p.ActionsForMessage(msg, now)
		if len(actions) == 0 {
			continue
		}
		analysis.Messages = append(analysis.Messages, MessageActions{
			MessageID: msg.ID,
			From:      msg.From.String(),
			Subject:   msg.Subject,
			Date:      msg.Date,
			Actions:   actions,
		})
		analysis.TotalActions += len(actions)
	}
	return analysis
}

// Rename updates the policy's display name and bumps UpdatedAt.
func (p *Policy) Rename(name string, now time.Time) {
	p.Name = name
	p.UpdatedAt = now
}

// SetEnabled toggles the policy and bumps UpdatedAt.
func (p *Policy) SetEnabled(enabled bool, now time.Time) {
	p.Enabled = enabled
	p.UpdatedAt = now
}

// Default returns the sensible starter policy: archive promotional and
// social mail once it is more than 30 days old.
func Default(userID string, now time.Time) *Policy {
	return &Policy{
		ID:                    "default_" + userID,
		UserID:                userID,
		Name:                  "Default Cleanup Policy",
		Description:           "Automatically archives old promotional and social emails",
		AutoArchivePromotions: true,
		AutoArchiveSocial:     true,
		OldThresholdDays:      30,
		Enabled:               true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// Quick builds the policy behind the CLI quick mode: like Default but with
// a caller-chosen age threshold and heuristic toggles.
func Quick(userID string, oldDays int, promotions, social bool, now time.Time) *Policy {
	if oldDays <= 0 {
		oldDays = 30
	}
	return &Policy{
		ID:                    "quick_" + userID,
		UserID:                userID,
		Name:                  "Quick Cleanup",
		Description:           "One-off cleanup with sensible defaults",
		AutoArchivePromotions: promotions,
		AutoArchiveSocial:     social,
		OldThresholdDays:      oldDays,
		Enabled:               true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}
