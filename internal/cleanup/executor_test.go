package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/joshsymonds/inboxsteward/internal/gmail"
	"github.com/joshsymonds/inboxsteward/internal/mailbox"
	"github.com/joshsymonds/inboxsteward/internal/policy"
	"github.com/joshsymonds/inboxsteward/internal/rate"
	"github.com/joshsymonds/inboxsteward/internal/run"
	"github.com/joshsymonds/inboxsteward/internal/store"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// fakeClient serves canned snapshots and records every mutation. Error
// injection is per message ID; failures decrement so retries can succeed.
type fakeClient struct {
	mu        sync.Mutex
	snapshots []*mailbox.Snapshot
	snapErr   error

	calls    []string
	failures map[string]int // message id -> remaining failures
	cancelOn string         // cancel this context when the message is touched
	cancel   context.CancelFunc
}

func (f *fakeClient) Snapshot(_ context.Context, userID string, _ int) (*mailbox.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	if len(f.snapshots) == 0 {
		return mailbox.SnapshotFromThreads(userID, nil, testNow), nil
	}
	snap := f.snapshots[0]
	if len(f.snapshots) > 1 {
		f.snapshots = f.snapshots[1:]
	}
	return snap, nil
}

func (f *fakeClient) act(op, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelOn == messageID && f.cancel != nil {
		f.cancel()
	}
	f.calls = append(f.calls, op+":"+messageID)
	if n := f.failures[messageID]; n > 0 {
		f.failures[messageID] = n - 1
		return fmt.Errorf("transient error on %s", messageID)
	}
	return nil
}

func (f *fakeClient) Archive(_ context.Context, id string) error    { return f.act("archive", id) }
func (f *fakeClient) Trash(_ context.Context, id string) error      { return f.act("trash", id) }
func (f *fakeClient) MarkRead(_ context.Context, id string) error   { return f.act("mark_read", id) }
func (f *fakeClient) MarkUnread(_ context.Context, id string) error { return f.act("mark_unread", id) }
func (f *fakeClient) Star(_ context.Context, id string) error       { return f.act("star", id) }
func (f *fakeClient) Unstar(_ context.Context, id string) error     { return f.act("unstar", id) }

func (f *fakeClient) ModifyLabels(_ context.Context, id string, add, remove []string) error {
	return f.act(fmt.Sprintf("labels%v%v", add, remove), id)
}

func (f *fakeClient) EnsureLabel(_ context.Context, name string) (gmail.LabelID, error) {
	return gmail.LabelID(name), nil
}

func (f *fakeClient) mutationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(client *fakeClient, repo store.Repository) *Service {
	svc := NewService(client, rate.Unlimited{}, repo, testLogger())
	svc.Clock = func() time.Time { return testNow }
	svc.Sleep = func(context.Context, time.Duration) error { return nil }
	return svc
}

func promoSnapshot(count int) *mailbox.Snapshot {
	var threads []mailbox.Thread
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("m%03d", i)
		threads = append(threads, mailbox.Thread{
			ID: "t" + id,
			Messages: []mailbox.Message{{
				ID:       id,
				ThreadID: "t" + id,
				Subject:  "Sale " + id,
				From:     mailbox.Address{Address: "deals@shop.example.com"},
				Date:     testNow.AddDate(0, 0, -40),
				Labels:   []string{mailbox.LabelInbox},
				Category: mailbox.CategoryPromotions,
			}},
		})
	}
	return mailbox.SnapshotFromThreads("u", threads, testNow)
}

func archivePolicy() *policy.Policy {
	p := policy.Default("u", testNow)
	return p
}

func TestExecuteDryRunDoesNotMutate(t *testing.T) {
	client := &fakeClient{snapshots: []*mailbox.Snapshot{promoSnapshot(100)}}
	repo := store.NewMemory()
	svc := newTestService(client, repo)

	r, err := svc.Execute(context.Background(), "u", archivePolicy(), Options{DryRun: true})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if r.Status != run.StatusDryRun {
		t.Fatalf("status = %s", r.Status)
	}
	if client.mutationCount() != 0 {
		t.Fatalf("dry run issued %d mutations", client.mutationCount())
	}
	if len(r.Actions) != 100 || r.ActionsSkipped() != 100 {
		t.Fatalf("expected 100 skipped planned actions, got %d/%d",
			len(r.Actions), r.ActionsSkipped())
	}
	if r.AfterSnapshot != nil {
		t.Fatal("dry run must not take an after snapshot")
	}
	if _, ok := r.StorageFreedMB(); ok {
		t.Fatal("dry run must not report storage freed")
	}

	// the run is persisted and retrievable
	saved, err := repo.GetRun(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("persisted run: %v", err)
	}
	if saved.Status != run.StatusDryRun {
		t.Fatalf("persisted status = %s", saved.Status)
	}
}

func TestExecuteAppliesActions(t *testing.T) {
	client := &fakeClient{snapshots: []*mailbox.Snapshot{promoSnapshot(3), promoSnapshot(0)}}
	repo := store.NewMemory()
	svc := newTestService(client, repo)

	r, err := svc.Execute(context.Background(), "u", archivePolicy(), Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if r.Status != run.StatusCompleted {
		t.Fatalf("status = %s", r.Status)
	}
	if r.ActionsSuccessful() != 3 || r.EmailsArchived() != 3 {
		t.Fatalf("archived = %d/%d", r.ActionsSuccessful(), r.EmailsArchived())
	}
	if r.AfterSnapshot == nil {
		t.Fatal("real execution should take an after snapshot")
	}
	if r.CompletedAt == nil {
		t.Fatal("terminal run must have CompletedAt")
	}
	for i := range r.Actions {
		if r.Actions[i].ExecutedAt == nil {
			t.Fatalf("action %d missing ExecutedAt", i)
		}
		if r.Actions[i].MessageSubject == "" || r.Actions[i].MessageFrom == "" {
			t.Fatalf("action %d missing denormalized audit fields", i)
		}
	}
}

func TestExecutePolicyDryRunFlagForcesDryRun(t *testing.T) {
	client := &fakeClient{snapshots: []*mailbox.Snapshot{promoSnapshot(2)}}
	svc := newTestService(client, nil)

	pol := archivePolicy()
	pol.DryRun = true

	r, err := svc.Execute(context.Background(), "u", pol, Options{DryRun: false})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if r.Status != run.StatusDryRun || client.mutationCount() != 0 {
		t.Fatalf("policy dry-run flag ignored: status=%s mutations=%d",
			r.Status, client.mutationCount())
	}
}

func TestExecutePartialFailureIsolation(t *testing.T) {
	client := &fakeClient{
		snapshots: []*mailbox.Snapshot{promoSnapshot(5), promoSnapshot(0)},
		failures:  map[string]int{"m002": 10}, // fails beyond all retries
	}
	svc := newTestService(client, store.NewMemory())

	r, err := svc.Execute(context.Background(), "u", archivePolicy(), Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if r.Status != run.StatusCompleted {
		t.Fatalf("partial failure must not fail the run, status = %s", r.Status)
	}
	if r.ActionsSuccessful() != 4 || r.ActionsFailed() != 1 {
		t.Fatalf("succeeded/failed = %d/%d", r.ActionsSuccessful(), r.ActionsFailed())
	}
	for i := range r.Actions {
		rec := &r.Actions[i]
		if rec.MessageID == "m002" {
			if rec.Status != run.ActionFailed || rec.ErrorMessage == "" {
				t.Fatalf("failed record wrong: %+v", rec)
			}
		} else if rec.Status != run.ActionSuccess {
			t.Fatalf("record %s affected by unrelated failure: %+v", rec.MessageID, rec)
		}
	}
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	client := &fakeClient{
		snapshots: []*mailbox.Snapshot{promoSnapshot(1), promoSnapshot(0)},
		failures:  map[string]int{"m000": 2}, // third attempt succeeds
	}
	svc := newTestService(client, nil)

	r, err := svc.Execute(context.Background(), "u", archivePolicy(), Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if r.ActionsSuccessful() != 1 || r.ActionsFailed() != 0 {
		t.Fatalf("retry did not recover: %d/%d", r.ActionsSuccessful(), r.ActionsFailed())
	}
}

func TestExecuteCancellationBetweenMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{
		snapshots: []*mailbox.Snapshot{promoSnapshot(10)},
		cancelOn:  "m004",
		cancel:    cancel,
	}
	repo := store.NewMemory()
	svc := newTestService(client, repo)

	r, err := svc.Execute(ctx, "u", archivePolicy(), Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if r.Status != run.StatusCancelled {
		t.Fatalf("status = %s", r.Status)
	}
	if r.AfterSnapshot != nil {
		t.Fatal("cancelled run must not take an after snapshot")
	}
	if r.ActionsSuccessful() >= 10 {
		t.Fatal("cancellation should stop remaining actions")
	}
	if r.CompletedAt == nil {
		t.Fatal("cancelled run must still have CompletedAt")
	}

	// cancelled runs still reach the audit trail
	if _, err := repo.GetRun(context.Background(), r.ID); err != nil {
		t.Fatalf("cancelled run not persisted: %v", err)
	}
}

func TestExecuteSnapshotFailure(t *testing.T) {
	client := &fakeClient{snapErr: errors.New("api down")}
	repo := store.NewMemory()
	svc := newTestService(client, repo)

	r, err := svc.Execute(context.Background(), "u", archivePolicy(), Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if r.Status != run.StatusFailed || r.ErrorMessage == "" {
		t.Fatalf("failed run record wrong: %+v", r)
	}
	if _, getErr := repo.GetRun(context.Background(), r.ID); getErr != nil {
		t.Fatalf("failed run not persisted: %v", getErr)
	}
}

func TestExecuteEmptyMailbox(t *testing.T) {
	client := &fakeClient{snapshots: []*mailbox.Snapshot{promoSnapshot(0)}}
	svc := newTestService(client, nil)

	r, err := svc.Execute(context.Background(), "u", archivePolicy(), Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if r.Status != run.StatusCompleted || len(r.Actions) != 0 {
		t.Fatalf("empty mailbox run wrong: %+v", r)
	}
}

func TestPlanLeavesActionsPending(t *testing.T) {
	client := &fakeClient{snapshots: []*mailbox.Snapshot{promoSnapshot(3)}}
	repo := store.NewMemory()
	svc := newTestService(client, repo)

	r, err := svc.Plan(context.Background(), "u", archivePolicy(), Options{DryRun: false})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if r.Status != run.StatusDryRun || client.mutationCount() != 0 {
		t.Fatalf("plan mutated the mailbox: status=%s mutations=%d", r.Status, client.mutationCount())
	}
	if len(r.Actions) != 3 {
		t.Fatalf("planned %d actions, want 3", len(r.Actions))
	}
	for i, rec := range r.Actions {
		if rec.Status != run.ActionPending {
			t.Fatalf("action %d status = %q, want %q", i, rec.Status, run.ActionPending)
		}
	}
	if r.AfterSnapshot != nil {
		t.Fatal("plan should not take an after snapshot")
	}
	if _, getErr := repo.GetRun(context.Background(), r.ID); getErr != nil {
		t.Fatalf("plan not persisted: %v", getErr)
	}
}

func TestAnalyzeIsReadOnly(t *testing.T) {
	client := &fakeClient{snapshots: []*mailbox.Snapshot{promoSnapshot(60)}}
	svc := newTestService(client, nil)

	analysis, err := svc.Analyze(context.Background(), "u", archivePolicy(), 0)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if client.mutationCount() != 0 {
		t.Fatal("analyze must not mutate")
	}
	if analysis.PlannedActions != 60 {
		t.Fatalf("planned = %d", analysis.PlannedActions)
	}
	if analysis.HealthScore >= 100 {
		t.Fatalf("unread promo-heavy mailbox should score below 100, got %v", analysis.HealthScore)
	}
	if len(analysis.Recommendations) == 0 {
		t.Fatal("expected recommendations for promotions-heavy mailbox")
	}
	if len(analysis.Threads) > analysisThreadDisplayLimit {
		t.Fatalf("thread list not truncated: %d", len(analysis.Threads))
	}
}
