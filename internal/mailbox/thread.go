package mailbox

import "time"

// Thread is a conversation: one or more messages sharing a thread ID.
type Thread struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
	Snippet  string    `json:"snippet,omitempty"`
}

// Subject returns the first message's subject, the conventional
// display subject for the whole conversation.
func (t *Thread) Subject() string {
	if len(t.Messages) == 0 {
		return ""
	}
	return t.Messages[0].Subject
}

// MessageCount returns the number of messages in the thread.
func (t *Thread) MessageCount() int { return len(t.Messages) }

// Latest returns the most recent message by date, or nil for an empty thread.
func (t *Thread) Latest() *Message {
	var latest *Message
	for i := range t.Messages {
		if latest == nil || t.Messages[i].Date.After(latest.Date) {
			latest = &t.Messages[i]
		}
	}
	return latest
}

// Oldest returns the earliest message by date, or nil for an empty thread.
func (t *Thread) Oldest() *Message {
	var oldest *Message
	for i := range t.Messages {
		if oldest == nil || t.Messages[i].Date.Before(oldest.Date) {
			oldest = &t.Messages[i]
		}
	}
	return oldest
}

// AgeDays is the age of the latest message, in whole days.
func (t *Thread) AgeDays(now time.Time) int {
	latest := t.Latest()
	if latest == nil {
		return 0
	}
	return latest.AgeDays(now)
}

// TotalSizeBytes sums the sizes of all messages in the thread.
func (t *Thread) TotalSizeBytes() int64 {
	var total int64
	for i := range t.Messages {
		total += t.Messages[i].SizeBytes
	}
	return total
}

// HasUnread reports whether any message in the thread is unread.
func (t *Thread) HasUnread() bool {
	for i := range t.Messages {
		if t.Messages[i].Unread {
			return true
		}
	}
	return false
}

// HasAttachments reports whether any message carries an attachment.
func (t *Thread) HasAttachments() bool {
	for i := range t.Messages {
		if t.Messages[i].HasAttachments {
			return true
		}
	}
	return false
}

// UniqueSenders returns the distinct From addresses in first-seen order.
func (t *Thread) UniqueSenders() []Address {
	seen := make(map[string]struct{}, len(t.Messages))
	var senders []Address
	for i := range t.Messages {
		addr := t.Messages[i].From
		if _, ok := seen[addr.Address]; ok {
			continue
		}
		seen[addr.Address] = struct{}{}
		senders = append(senders, addr)
	}
	return senders
}
