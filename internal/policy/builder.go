package policy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
)

// Build-time validation failures. These surface immediately from Build and
// never reach the executor.
var (
	ErrNoConditions = errors.New("rule requires at least one condition")
	ErrNoAction     = errors.New("rule requires an action")
)

// RuleBuilder accumulates conditions and one action into a validated Rule.
// Every accumulated condition is kept and ANDed together.
//
//	rule, err := policy.NewRuleBuilder().
//		Category(mailbox.CategoryPromotions).
//		OlderThanDays(30).
//		Archive().
//		Build()
type RuleBuilder struct {
	conditions []Condition
	action     *Action
	name       string
	desc       string
	priority   int
	enabled    bool
	clock      func() time.Time
}

// NewRuleBuilder returns a builder with default priority 100, enabled.
func NewRuleBuilder() *RuleBuilder {
	return &RuleBuilder{priority: 100, enabled: true, clock: time.Now}
}

// Category matches messages in the given Gmail category.
func (b *RuleBuilder) Category(cat mailbox.Category) *RuleBuilder {
	b.conditions = append(b.conditions, CategoryIs{Category: cat})
	return b
}

// OlderThanDays matches messages strictly older than days.
func (b *RuleBuilder) OlderThanDays(days int) *RuleBuilder {
	b.conditions = append(b.conditions, OlderThanDays{Days: days})
	return b
}

// SenderMatches matches an exact address or a sender domain.
func (b *RuleBuilder) SenderMatches(pattern string) *RuleBuilder {
	b.conditions = append(b.conditions, SenderMatches{Pattern: pattern})
	return b
}

// SubjectContains matches a subject substring.
func (b *RuleBuilder) SubjectContains(text string) *RuleBuilder {
	b.conditions = append(b.conditions, SubjectContains{Text: text})
	return b
}

// LargerThanMB matches messages strictly larger than mb megabytes.
func (b *RuleBuilder) LargerThanMB(mb float64) *RuleBuilder {
	b.conditions = append(b.conditions, LargerThanMB{MB: mb})
	return b
}

// ImportanceIs matches the derived importance level.
func (b *RuleBuilder) ImportanceIs(imp mailbox.Importance) *RuleBuilder {
	b.conditions = append(b.conditions, ImportanceIs{Importance: imp})
	return b
}

// Unread matches messages whose unread flag equals want.
func (b *RuleBuilder) Unread(want bool) *RuleBuilder {
	b.conditions = append(b.conditions, IsUnread{Want: want})
	return b
}

// Starred matches messages whose starred flag equals want.
func (b *RuleBuilder) Starred(want bool) *RuleBuilder {
	b.conditions = append(b.conditions, IsStarred{Want: want})
	return b
}

// Attachments matches messages whose attachment flag equals want.
func (b *RuleBuilder) Attachments(want bool) *RuleBuilder {
	b.conditions = append(b.conditions, HasAttachments{Want: want})
	return b
}

// Label matches messages carrying the given label.
func (b *RuleBuilder) Label(label string) *RuleBuilder {
	b.conditions = append(b.conditions, LabelIs{Label: label})
	return b
}

// Condition appends an already-constructed condition, used by boundary
// decoders that parse conditions from wire form.
func (b *RuleBuilder) Condition(c Condition) *RuleBuilder {
	b.conditions = append(b.conditions, c)
	return b
}

// Action sets an already-constructed action.
func (b *RuleBuilder) Action(a Action) *RuleBuilder { return b.setAction(a) }

// Archive sets the archive action.
func (b *RuleBuilder) Archive() *RuleBuilder { return b.setAction(Action{Kind: ActionArchive}) }

// Delete sets the delete (trash) action.
func (b *RuleBuilder) Delete() *RuleBuilder { return b.setAction(Action{Kind: ActionDelete}) }

// MarkRead sets the mark-read action.
func (b *RuleBuilder) MarkRead() *RuleBuilder { return b.setAction(Action{Kind: ActionMarkRead}) }

// MarkUnread sets the mark-unread action.
func (b *RuleBuilder) MarkUnread() *RuleBuilder { return b.setAction(Action{Kind: ActionMarkUnread}) }

// Star sets the star action.
func (b *RuleBuilder) Star() *RuleBuilder { return b.setAction(Action{Kind: ActionStar}) }

// Unstar sets the unstar action.
func (b *RuleBuilder) Unstar() *RuleBuilder { return b.setAction(Action{Kind: ActionUnstar}) }

// ApplyLabel sets the apply-label action with its label parameter.
func (b *RuleBuilder) ApplyLabel(label string) *RuleBuilder {
	return b.setAction(Action{Kind: ActionApplyLabel, Label: label})
}

// RemoveLabel sets the remove-label action with its label parameter.
func (b *RuleBuilder) RemoveLabel(label string) *RuleBuilder {
	return b.setAction(Action{Kind: ActionRemoveLabel, Label: label})
}

// Skip sets the no-op action.
func (b *RuleBuilder) Skip() *RuleBuilder { return b.setAction(Action{Kind: ActionSkip}) }

// WithName overrides the generated rule name.
func (b *RuleBuilder) WithName(name string) *RuleBuilder {
	b.name = name
	return b
}

// WithDescription overrides the generated description.
func (b *RuleBuilder) WithDescription(desc string) *RuleBuilder {
	b.desc = desc
	return b
}

// WithPriority sets the evaluation priority (lower evaluates first).
func (b *RuleBuilder) WithPriority(priority int) *RuleBuilder {
	b.priority = priority
	return b
}

// Enabled toggles whether the built rule is active.
func (b *RuleBuilder) Enabled(enabled bool) *RuleBuilder {
	b.enabled = enabled
	return b
}

func (b *RuleBuilder) setAction(a Action) *RuleBuilder {
	b.action = &a
	return b
}

// Build validates the accumulated state and produces the Rule. It fails if
// no condition or no action was set.
func (b *RuleBuilder) Build() (Rule, error) {
	if len(b.conditions) == 0 {
		return Rule{}, ErrNoConditions
	}
	if b.action == nil {
		return Rule{}, ErrNoAction
	}

	name := b.name
	if name == "" {
		name = generateName(*b.action, b.conditions[0])
	}
	desc := b.desc
	if desc == "" {
		desc = generateDescription(*b.action, b.conditions)
	}

	return Rule{
		ID:          uuid.NewString()[:8],
		Name:        name,
		Description: desc,
		Conditions:  b.conditions,
		Action:      *b.action,
		Enabled:     b.enabled,
		Priority:    b.priority,
		CreatedAt:   b.clock(),
	}, nil
}

// generateName derives a display name from the action and the primary
// condition, e.g. "Archive - Category: promotions".
func generateName(action Action, primary Condition) string {
	var cond string
	switch c := primary.(type) {
	case CategoryIs:
		cond = fmt.Sprintf("Category: %s", c.Category)
	case OlderThanDays:
		cond = fmt.Sprintf("Older than %d days", c.Days)
	case SenderMatches:
		cond = fmt.Sprintf("From: %s", c.Pattern)
	case SubjectContains:
		cond = fmt.Sprintf("Subject: %s", c.Text)
	case LargerThanMB:
		cond = fmt.Sprintf("Larger than %sMB", c.Value())
	default:
		cond = fmt.Sprintf("%s: %s", primary.Kind(), primary.Value())
	}
	return fmt.Sprintf("%s - %s", action.DisplayName(), cond)
}

func generateDescription(action Action, conditions []Condition) string {
	parts := make([]string, 0, len(conditions))
	for _, cond := range conditions {
		switch c := cond.(type) {
		case CategoryIs:
			parts = append(parts, fmt.Sprintf("in %s category", c.Category))
		case OlderThanDays:
			parts = append(parts, fmt.Sprintf("older than %d days", c.Days))
		case SenderMatches:
			parts = append(parts, fmt.Sprintf("from %s", c.Pattern))
		default:
			parts = append(parts, fmt.Sprintf("%s %s", cond.Kind(), cond.Value()))
		}
	}
	verb := strings.ReplaceAll(string(action.Kind), "_", " ")
	return fmt.Sprintf("Automatically %s messages %s", verb, strings.Join(parts, " and "))
}

// ArchiveOldPromotions is a convenience rule: archive promotional mail
// older than days.
func ArchiveOldPromotions(days int) (Rule, error) {
	return NewRuleBuilder().
		Category(mailbox.CategoryPromotions).
		OlderThanDays(days).
		Archive().
		WithName(fmt.Sprintf("Archive Old Promotions (%d+ days)", days)).
		Build()
}

// ArchiveOldSocial is a convenience rule: archive social mail older than days.
func ArchiveOldSocial(days int) (Rule, error) {
	return NewRuleBuilder().
		Category(mailbox.CategorySocial).
		OlderThanDays(days).
		Archive().
		WithName(fmt.Sprintf("Archive Old Social (%d+ days)", days)).
		Build()
}

// DeleteVeryOld is a convenience rule: trash anything older than days, at a
// low priority so narrower rules run first.
func DeleteVeryOld(days int) (Rule, error) {
	return NewRuleBuilder().
		OlderThanDays(days).
		Delete().
		WithName(fmt.Sprintf("Delete Very Old Emails (%d+ days)", days)).
		WithPriority(200).
		Build()
}

// LabelNewsletters is a convenience rule: tag promotional mail with label.
func LabelNewsletters(label string) (Rule, error) {
	return NewRuleBuilder().
		Category(mailbox.CategoryPromotions).
		ApplyLabel(label).
		WithName("Label Newsletters").
		Build()
}
