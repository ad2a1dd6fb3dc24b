package runtime

import (
	"context"
	"fmt"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/joshsymonds/inboxsteward/internal/gmail"
	"github.com/joshsymonds/inboxsteward/internal/mailbox"
	"github.com/joshsymonds/inboxsteward/internal/rate"
)

const threadListPageSize = 100

// googleClient adapts *gmailapi.Service to the engine's Client interface.
// Every API call waits on the limiter first.
type googleClient struct {
	svc     *gmailapi.Service
	limiter rate.Limiter
}

// NewGoogleAPIClient wraps an authenticated Gmail service.
func NewGoogleAPIClient(svc *gmailapi.Service, limiter rate.Limiter) gmail.Client {
	if limiter == nil {
		limiter = rate.Unlimited{}
	}
	return &googleClient{svc: svc, limiter: limiter}
}

func (g *googleClient) Snapshot(ctx context.Context, userID string, maxThreads int) (*mailbox.Snapshot, error) {
	var threads []mailbox.Thread
	pageToken := ""
	for len(threads) < maxThreads {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		pageSize := int64(threadListPageSize)
		if remaining := int64(maxThreads - len(threads)); remaining < pageSize {
			pageSize = remaining
		}
		call := g.svc.Users.Threads.List("me").MaxResults(pageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("list threads: %w", err)
		}
		for _, t := range res.Threads {
			if len(threads) >= maxThreads {
				break
			}
			full, err := g.getThread(ctx, t.Id)
			if err != nil {
				return nil, err
			}
			threads = append(threads, full)
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}
	return mailbox.SnapshotFromThreads(userID, threads, time.Now()), nil
}

func (g *googleClient) getThread(ctx context.Context, id string) (mailbox.Thread, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return mailbox.Thread{}, err
	}
	t, err := g.svc.Users.Threads.Get("me", id).
		Format("metadata").
		MetadataHeaders("From", "To", "Cc", "Subject", "Date").
		Context(ctx).Do()
	if err != nil {
		return mailbox.Thread{}, fmt.Errorf("get thread %s: %w", id, err)
	}
	return threadToDomain(t), nil
}

func (g *googleClient) Archive(ctx context.Context, messageID string) error {
	return g.modify(ctx, messageID, nil, []string{mailbox.LabelInbox})
}

func (g *googleClient) Trash(ctx context.Context, messageID string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := g.svc.Users.Messages.Trash("me", messageID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("trash message %s: %w", messageID, err)
	}
	return nil
}

func (g *googleClient) MarkRead(ctx context.Context, messageID string) error {
	return g.modify(ctx, messageID, nil, []string{mailbox.LabelUnread})
}

func (g *googleClient) MarkUnread(ctx context.Context, messageID string) error {
	return g.modify(ctx, messageID, []string{mailbox.LabelUnread}, nil)
}

func (g *googleClient) Star(ctx context.Context, messageID string) error {
	return g.modify(ctx, messageID, []string{mailbox.LabelStarred}, nil)
}

func (g *googleClient) Unstar(ctx context.Context, messageID string) error {
	return g.modify(ctx, messageID, nil, []string{mailbox.LabelStarred})
}

func (g *googleClient) ModifyLabels(ctx context.Context, messageID string, add, remove []string) error {
	addIDs := make([]string, 0, len(add))
	for _, name := range add {
		id, err := g.EnsureLabel(ctx, name)
		if err != nil {
			return err
		}
		addIDs = append(addIDs, string(id))
	}
	removeIDs := make([]string, 0, len(remove))
	for _, name := range remove {
		id, ok, err := g.findLabel(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			// removing a label that does not exist is a no-op
			continue
		}
		removeIDs = append(removeIDs, string(id))
	}
	if len(addIDs) == 0 && len(removeIDs) == 0 {
		return nil
	}
	return g.modify(ctx, messageID, addIDs, removeIDs)
}

func (g *googleClient) EnsureLabel(ctx context.Context, name string) (gmail.LabelID, error) {
	id, ok, err := g.findLabel(ctx, name)
	if err != nil {
		return "", err
	}
	if ok {
		return id, nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	created, err := g.svc.Users.Labels.Create("me", &gmailapi.Label{Name: name}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %q: %w", name, err)
	}
	return gmail.LabelID(created.Id), nil
}

func (g *googleClient) findLabel(ctx context.Context, name string) (gmail.LabelID, bool, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", false, err
	}
	lr, err := g.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", false, fmt.Errorf("list labels: %w", err)
	}
	for _, l := range lr.Labels {
		if l.Name == name || l.Id == name {
			return gmail.LabelID(l.Id), true, nil
		}
	}
	return "", false, nil
}

func (g *googleClient) modify(ctx context.Context, messageID string, add, remove []string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	req := &gmailapi.ModifyMessageRequest{AddLabelIds: add, RemoveLabelIds: remove}
	_, err := g.svc.Users.Messages.Modify("me", messageID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("modify message %s: %w", messageID, err)
	}
	return nil
}

var _ gmail.Client = (*googleClient)(nil)
