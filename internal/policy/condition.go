// Package policy implements the declarative cleanup rule model: typed
// match conditions, actions, rules, retention windows, and the policy
// resolution algorithm that turns a message into a list of planned actions.
package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
)

// ConditionKind identifies a condition type on the wire (persistence,
// policy files, legacy payloads). In-memory dispatch goes through the
// Condition sum type, never through string comparison.
type ConditionKind string

const (
	KindSenderMatches   ConditionKind = "sender_matches"
	KindSubjectContains ConditionKind = "subject_contains"
	KindOlderThanDays   ConditionKind = "older_than_days"
	KindLargerThanMB    ConditionKind = "larger_than_mb"
	KindCategoryIs      ConditionKind = "category_is"
	KindImportanceIs    ConditionKind = "importance_is"
	KindIsUnread        ConditionKind = "is_unread"
	KindIsStarred       ConditionKind = "is_starred"
	KindHasAttachments  ConditionKind = "has_attachments"
	KindLabelIs         ConditionKind = "label_is"
)

// Condition matches a single message attribute. Implementations each carry
// their own typed payload.
type Condition interface {
	Matches(msg *mailbox.Message, now time.Time) bool
	Kind() ConditionKind
	Value() string
}

// SenderMatches matches an exact address (pattern contains @) or a sender
// domain, case-insensitively.
type SenderMatches struct{ Pattern string }

func (c SenderMatches) Matches(msg *mailbox.Message, _ time.Time) bool {
	return msg.MatchesSender(c.Pattern)
}
func (c SenderMatches) Kind() ConditionKind { return KindSenderMatches }
func (c SenderMatches) Value() string       { return c.Pattern }

// SubjectContains matches a case-insensitive subject substring.
type SubjectContains struct{ Text string }

func (c SubjectContains) Matches(msg *mailbox.Message, _ time.Time) bool {
	return strings.Contains(strings.ToLower(msg.Subject), strings.ToLower(c.Text))
}
func (c SubjectContains) Kind() ConditionKind { return KindSubjectContains }
func (c SubjectContains) Value() string       { return c.Text }

// OlderThanDays matches messages strictly older than Days.
type OlderThanDays struct{ Days int }

func (c OlderThanDays) Matches(msg *mailbox.Message, now time.Time) bool {
	return msg.AgeDays(now) > c.Days
}
func (c OlderThanDays) Kind() ConditionKind { return KindOlderThanDays }
func (c OlderThanDays) Value() string       { return strconv.Itoa(c.Days) }

// LargerThanMB matches messages strictly larger than MB megabytes.
type LargerThanMB struct{ MB float64 }

func (c LargerThanMB) Matches(msg *mailbox.Message, _ time.Time) bool {
	return float64(msg.SizeBytes) > c.MB*1024*1024
}
func (c LargerThanMB) Kind() ConditionKind { return KindLargerThanMB }
func (c LargerThanMB) Value() string       { return strconv.FormatFloat(c.MB, 'f', -1, 64) }

// CategoryIs matches the message's Gmail tab category.
type CategoryIs struct{ Category mailbox.Category }

func (c CategoryIs) Matches(msg *mailbox.Message, _ time.Time) bool {
	return msg.Category == c.Category
}
func (c CategoryIs) Kind() ConditionKind { return KindCategoryIs }
func (c CategoryIs) Value() string       { return string(c.Category) }

// ImportanceIs matches the derived importance level.
type ImportanceIs struct{ Importance mailbox.Importance }

func (c ImportanceIs) Matches(msg *mailbox.Message, _ time.Time) bool {
	return msg.Importance == c.Importance
}
func (c ImportanceIs) Kind() ConditionKind { return KindImportanceIs }
func (c ImportanceIs) Value() string       { return string(c.Importance) }

// IsUnread matches the unread flag against Want.
type IsUnread struct{ Want bool }

func (c IsUnread) Matches(msg *mailbox.Message, _ time.Time) bool { return msg.Unread == c.Want }
func (c IsUnread) Kind() ConditionKind                            { return KindIsUnread }
func (c IsUnread) Value() string                                  { return strconv.FormatBool(c.Want) }

// IsStarred matches the starred flag against Want.
type IsStarred struct{ Want bool }

func (c IsStarred) Matches(msg *mailbox.Message, _ time.Time) bool { return msg.Starred == c.Want }
func (c IsStarred) Kind() ConditionKind                            { return KindIsStarred }
func (c IsStarred) Value() string                                  { return strconv.FormatBool(c.Want) }

// HasAttachments matches the attachment flag against Want.
type HasAttachments struct{ Want bool }

func (c HasAttachments) Matches(msg *mailbox.Message, _ time.Time) bool {
	return msg.HasAttachments == c.Want
}
func (c HasAttachments) Kind() ConditionKind { return KindHasAttachments }
func (c HasAttachments) Value() string       { return strconv.FormatBool(c.Want) }

// LabelIs matches exact label membership.
type LabelIs struct{ Label string }

func (c LabelIs) Matches(msg *mailbox.Message, _ time.Time) bool { return msg.HasLabel(c.Label) }
func (c LabelIs) Kind() ConditionKind                            { return KindLabelIs }
func (c LabelIs) Value() string                                  { return c.Label }

// neverMatches is the fail-closed stand-in for a condition whose raw value
// could not be parsed. It never matches and never errors at match time.
type neverMatches struct {
	kind ConditionKind
	raw  string
}

func (c neverMatches) Matches(*mailbox.Message, time.Time) bool { return false }
func (c neverMatches) Kind() ConditionKind                      { return c.kind }
func (c neverMatches) Value() string                            { return c.raw }

// ParseCondition builds a typed condition from its wire form. Numeric and
// boolean payloads that fail to parse return an error.
func ParseCondition(kind ConditionKind, value string) (Condition, error) {
	switch kind {
	case KindSenderMatches:
		return SenderMatches{Pattern: value}, nil
	case KindSubjectContains:
		return SubjectContains{Text: value}, nil
	case KindOlderThanDays:
		days, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("parse older_than_days value %q: %w", value, err)
		}
		return OlderThanDays{Days: days}, nil
	case KindLargerThanMB:
		mb, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("parse larger_than_mb value %q: %w", value, err)
		}
		return LargerThanMB{MB: mb}, nil
	case KindCategoryIs:
		return CategoryIs{Category: mailbox.Category(value)}, nil
	case KindImportanceIs:
		return ImportanceIs{Importance: mailbox.Importance(value)}, nil
	case KindIsUnread:
		want, err := parseBoolValue(value)
		if err != nil {
			return nil, err
		}
		return IsUnread{Want: want}, nil
	case KindIsStarred:
		want, err := parseBoolValue(value)
		if err != nil {
			return nil, err
		}
		return IsStarred{Want: want}, nil
	case KindHasAttachments:
		want, err := parseBoolValue(value)
		if err != nil {
			return nil, err
		}
		return HasAttachments{Want: want}, nil
	case KindLabelIs:
		return LabelIs{Label: value}, nil
	default:
		return nil, fmt.Errorf("unknown condition kind %q", kind)
	}
}

// ParseConditionLenient is the fail-closed variant used when decoding
// stored or legacy rules: malformed values yield a condition that never
// matches instead of an error.
func ParseConditionLenient(kind ConditionKind, value string) Condition {
	cond, err := ParseCondition(kind, value)
	if err != nil {
		return neverMatches{kind: kind, raw: value}
	}
	return cond
}

func parseBoolValue(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("parse boolean value %q", value)
	}
}
