package runtime

import (
	"net/mail"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
)

func threadToDomain(t *gmailapi.Thread) mailbox.Thread {
	out := mailbox.Thread{ID: t.Id, Snippet: t.Snippet}
	for _, m := range t.Messages {
		out.Messages = append(out.Messages, messageToDomain(m))
	}
	return out
}

// messageToDomain derives the engine's message model from a metadata-format
// API message: categories from CATEGORY_* labels, importance from the
// starred/important/spam signals, addresses parsed from headers.
func messageToDomain(m *gmailapi.Message) mailbox.Message {
	headers := map[string]string{}
	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			headers[h.Name] = h.Value
		}
	}

	msg := mailbox.Message{
		ID:        m.Id,
		ThreadID:  m.ThreadId,
		Subject:   headers["Subject"],
		From:      parseAddress(headers["From"]),
		To:        parseAddressList(headers["To"]),
		Cc:        parseAddressList(headers["Cc"]),
		Snippet:   m.Snippet,
		Labels:    m.LabelIds,
		SizeBytes: m.SizeEstimate,
	}
	if m.InternalDate > 0 {
		msg.Date = time.UnixMilli(m.InternalDate).UTC()
	} else if d, err := mail.ParseDate(headers["Date"]); err == nil {
		msg.Date = d.UTC()
	}

	labels := map[string]bool{}
	for _, l := range m.LabelIds {
		labels[l] = true
	}
	msg.Unread = labels[mailbox.LabelUnread]
	msg.Starred = labels[mailbox.LabelStarred]
	msg.HasAttachments = hasAttachments(m.Payload)
	msg.Category = categoryFromLabels(labels)
	msg.Importance = importanceFromSignals(labels, msg.Category)
	return msg
}

func categoryFromLabels(labels map[string]bool) mailbox.Category {
	switch {
	case labels["CATEGORY_SOCIAL"]:
		return mailbox.CategorySocial
	case labels["CATEGORY_PROMOTIONS"]:
		return mailbox.CategoryPromotions
	case labels["CATEGORY_UPDATES"]:
		return mailbox.CategoryUpdates
	case labels["CATEGORY_FORUMS"]:
		return mailbox.CategoryForums
	case labels["CATEGORY_PERSONAL"]:
		return mailbox.CategoryPrimary
	}
	return mailbox.CategoryPrimary
}

func importanceFromSignals(labels map[string]bool, cat mailbox.Category) mailbox.Importance {
	switch {
	case labels[mailbox.LabelSpam]:
		return mailbox.ImportanceSpam
	case labels[mailbox.LabelImportant], labels[mailbox.LabelStarred]:
		return mailbox.ImportanceHigh
	case cat == mailbox.CategoryPromotions:
		return mailbox.ImportanceLow
	}
	return mailbox.ImportanceMedium
}

func hasAttachments(p *gmailapi.MessagePart) bool {
	if p == nil {
		return false
	}
	for _, part := range p.Parts {
		if part.Filename != "" {
			return true
		}
		if hasAttachments(part) {
			return true
		}
	}
	return false
}

func parseAddress(raw string) mailbox.Address {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return mailbox.Address{}
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return mailbox.Address{Address: raw}
	}
	return mailbox.Address{Address: addr.Address, Name: addr.Name}
}

func parseAddressList(raw string) []mailbox.Address {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	addrs, err := mail.ParseAddressList(raw)
	if err != nil {
		return []mailbox.Address{{Address: raw}}
	}
	out := make([]mailbox.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, mailbox.Address{Address: a.Address, Name: a.Name})
	}
	return out
}
