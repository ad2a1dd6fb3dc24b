package mailbox

import (
	"strings"
	"time"
)

// Well-known Gmail system labels the engine keys decisions off.
const (
	LabelInbox     = "INBOX"
	LabelTrash     = "TRASH"
	LabelSpam      = "SPAM"
	LabelStarred   = "STARRED"
	LabelImportant = "IMPORTANT"
	LabelUnread    = "UNREAD"
)

// Category is the Gmail tab classification of a message.
type Category string

const (
	CategoryPrimary    Category = "primary"
	CategorySocial     Category = "social"
	CategoryPromotions Category = "promotions"
	CategoryUpdates    Category = "updates"
	CategoryForums     Category = "forums"
	CategoryUnknown    Category = "unknown"
)

// Importance is a coarse prioritization level derived at fetch time.
type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceMedium   Importance = "medium"
	ImportanceLow      Importance = "low"
	ImportanceSpam     Importance = "spam"
)

// Message is a single email message as captured in a snapshot.
// Labels are the single source of truth for inbox/archive/trash state;
// the boolean flags mirror label membership and are set at conversion time.
type Message struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	Subject  string    `json:"subject"`
	From     Address   `json:"from"`
	To       []Address `json:"to,omitempty"`
	Cc       []Address `json:"cc,omitempty"`
	Date     time.Time `json:"date"`
	Snippet  string    `json:"snippet,omitempty"`
	Labels   []string  `json:"labels,omitempty"`

	SizeBytes      int64      `json:"size_bytes"`
	HasAttachments bool       `json:"has_attachments"`
	Unread         bool       `json:"unread"`
	Starred        bool       `json:"starred"`
	Category       Category   `json:"category"`
	Importance     Importance `json:"importance"`
}

// HasLabel reports exact (case-sensitive) label membership.
func (m *Message) HasLabel(label string) bool {
	for _, l := range m.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// AgeDays returns the message age in whole days relative to now.
func (m *Message) AgeDays(now time.Time) int {
	if m.Date.IsZero() || now.Before(m.Date) {
		return 0
	}
	return int(now.Sub(m.Date).Hours() / 24)
}

// InInbox reports whether the message carries the INBOX label.
func (m *Message) InInbox() bool { return m.HasLabel(LabelInbox) }

// Trashed reports whether the message carries the TRASH label.
func (m *Message) Trashed() bool { return m.HasLabel(LabelTrash) }

// Archived reports whether the message is neither in the inbox nor trashed.
func (m *Message) Archived() bool { return !m.InInbox() && !m.Trashed() }

// MatchesSender matches an exact address when the pattern contains an @,
// otherwise the sender's domain. Comparison is case-insensitive.
func (m *Message) MatchesSender(pattern string) bool {
	if strings.Contains(pattern, "@") {
		return strings.EqualFold(m.From.Address, pattern)
	}
	return strings.EqualFold(m.From.Domain(), pattern)
}
