// Package gmail defines the narrow mailbox surface the cleanup engine
// needs. Implementations must be idempotent per action: re-applying an
// action to a message already in the target state succeeds quietly.
package gmail

import (
	"context"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
)

// Client is the capability interface between the engine and Gmail.
type Client interface {
	// Snapshot fetches up to maxThreads recent threads and derives the
	// mailbox state for userID.
	Snapshot(ctx context.Context, userID string, maxThreads int) (*mailbox.Snapshot, error)

	// Archive removes the message from the inbox.
	Archive(ctx context.Context, messageID string) error
	// Trash moves the message to trash.
	Trash(ctx context.Context, messageID string) error

	MarkRead(ctx context.Context, messageID string) error
	MarkUnread(ctx context.Context, messageID string) error
	Star(ctx context.Context, messageID string) error
	Unstar(ctx context.Context, messageID string) error

	// ModifyLabels applies and removes label names in one call. Unknown
	// label names on the add side are created first.
	ModifyLabels(ctx context.Context, messageID string, add, remove []string) error

	// EnsureLabel resolves a label name to its ID, creating it if absent.
	EnsureLabel(ctx context.Context, name string) (LabelID, error)
}
