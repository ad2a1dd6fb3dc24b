package run

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
	"github.com/joshsymonds/inboxsteward/internal/policy"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func snapshotOfSize(bytes int64) *mailbox.Snapshot {
	return mailbox.SnapshotFromThreads("u", []mailbox.Thread{{
		ID:       "t1",
		Messages: []mailbox.Message{{ID: "m1", SizeBytes: bytes, Date: now}},
	}}, now)
}

func terminalRun() *Run {
	done := now.Add(90 * time.Second)
	return &Run{
		ID:         "run_u_123_abcdef",
		UserID:     "u",
		PolicyID:   "p",
		PolicyName: "test",
		Status:     StatusCompleted,
		StartedAt:  now,
		CompletedAt: &done,
		Actions: []ActionRecord{
			{MessageID: "m1", ActionType: policy.ActionDelete, Status: ActionSuccess},
			{MessageID: "m2", ActionType: policy.ActionDelete, Status: ActionFailed, ErrorMessage: "boom"},
			{MessageID: "m3", ActionType: policy.ActionArchive, Status: ActionSuccess},
			{MessageID: "m4", ActionType: policy.ActionApplyLabel, ActionLabel: "News", Status: ActionSuccess},
			{MessageID: "m5", ActionType: policy.ActionMarkRead, Status: ActionSkipped},
		},
	}
}

func TestRunIDFormats(t *testing.T) {
	id := NewID("josh@example.com", now)
	wantPrefix := fmt.Sprintf("run_josh@example.com_%d_", now.Unix())
	if !strings.HasPrefix(id, wantPrefix) {
		t.Fatalf("unexpected id %q", id)
	}
	if suffix := id[strings.LastIndex(id, "_")+1:]; len(suffix) != 6 {
		t.Fatalf("uniqueness suffix = %q", suffix)
	}
	if NewID("u", now) == NewID("u", now) {
		t.Fatal("two ids for the same instant must differ")
	}

	dry := NewDryRunID("josh@example.com", now)
	wantDryPrefix := fmt.Sprintf("dry_run_josh@example.com_%d_", now.Unix())
	if !strings.HasPrefix(dry, wantDryPrefix) {
		t.Fatalf("unexpected dry run id %q", dry)
	}
	if NewDryRunID("u", now) == NewDryRunID("u", now) {
		t.Fatal("two dry run ids for the same instant must differ")
	}
}

func TestRunCounters(t *testing.T) {
	r := terminalRun()

	if r.ActionsSuccessful() != 3 || r.ActionsFailed() != 1 || r.ActionsSkipped() != 1 {
		t.Fatalf("status counters wrong: %d/%d/%d",
			r.ActionsSuccessful(), r.ActionsFailed(), r.ActionsSkipped())
	}
	if r.EmailsDeleted() != 1 {
		t.Fatalf("EmailsDeleted = %d, failed delete must not count", r.EmailsDeleted())
	}
	if r.EmailsArchived() != 1 || r.EmailsLabeled() != 1 {
		t.Fatalf("archived/labeled = %d/%d", r.EmailsArchived(), r.EmailsLabeled())
	}
	byType := r.ActionsByType()
	if byType[policy.ActionDelete] != 2 || byType[policy.ActionMarkRead] != 1 {
		t.Fatalf("histogram wrong: %v", byType)
	}
	if r.DurationSeconds() != 90 {
		t.Fatalf("duration = %v", r.DurationSeconds())
	}
}

func TestStorageFreedNeedsBothSnapshots(t *testing.T) {
	r := terminalRun()
	if _, ok := r.StorageFreedMB(); ok {
		t.Fatal("no snapshots should mean no storage metric")
	}

	r.BeforeSnapshot = snapshotOfSize(10 * 1024 * 1024)
	if _, ok := r.StorageFreedMB(); ok {
		t.Fatal("dry runs have no after snapshot and no storage metric")
	}

	r.AfterSnapshot = snapshotOfSize(4 * 1024 * 1024)
	freed, ok := r.StorageFreedMB()
	if !ok || freed != 6 {
		t.Fatalf("freed = %v ok=%v, want 6", freed, ok)
	}
}

func TestSummarize(t *testing.T) {
	r := terminalRun()
	r.BeforeSnapshot = snapshotOfSize(2 * 1024 * 1024)
	r.AfterSnapshot = snapshotOfSize(1024 * 1024)

	sum := r.Summarize()
	if sum.ActionsTotal != 5 || sum.ActionsSuccessful != 3 {
		t.Fatalf("summary counters wrong: %+v", sum)
	}
	if sum.StorageFreedMB == nil || *sum.StorageFreedMB != 1 {
		t.Fatalf("storage freed = %v", sum.StorageFreedMB)
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusPending:    false,
		StatusInProgress: false,
		StatusDryRun:     false,
		StatusCompleted:  true,
		StatusFailed:     true,
		StatusCancelled:  true,
	} {
		if status.Terminal() != want {
			t.Fatalf("%s.Terminal() = %v, want %v", status, status.Terminal(), want)
		}
	}
}

func TestBuildReport(t *testing.T) {
	mk := func(id string, started time.Time, status Status, actions ...ActionRecord) *Run {
		done := started.Add(time.Minute)
		return &Run{
			ID: id, UserID: "u", Status: status,
			StartedAt: started, CompletedAt: &done, Actions: actions,
		}
	}

	runs := []*Run{
		mk("r1", now.AddDate(0, 0, -1), StatusCompleted,
			ActionRecord{ActionType: policy.ActionDelete, Status: ActionSuccess},
			ActionRecord{ActionType: policy.ActionDelete, Status: ActionSuccess},
			ActionRecord{ActionType: policy.ActionArchive, Status: ActionSuccess}),
		mk("r2", now.AddDate(0, 0, -2), StatusDryRun,
			ActionRecord{ActionType: policy.ActionArchive, Status: ActionSkipped}),
		mk("r3", now.AddDate(0, 0, -3), StatusFailed),
		mk("r4", now.AddDate(0, 0, -40), StatusCompleted), // outside window
	}
	runs = append(runs, &Run{ID: "other", UserID: "someone-else", StartedAt: now.AddDate(0, 0, -1), Status: StatusCompleted})

	rep := BuildReport("u", runs, now.AddDate(0, 0, -7), now)

	if rep.TotalRuns != 3 || rep.CompletedRuns != 1 || rep.FailedRuns != 1 || rep.DryRuns != 1 {
		t.Fatalf("run counts wrong: %+v", rep)
	}
	if rep.EmailsDeleted != 2 || rep.EmailsArchived != 1 {
		t.Fatalf("email counts wrong: %+v", rep)
	}
	if rep.AvgDurationSeconds != 60 {
		t.Fatalf("avg duration = %v", rep.AvgDurationSeconds)
	}
	// delete and archive both total 2; the tie breaks alphabetically
	if len(rep.TopActions) != 2 || rep.TopActions[0].Action != policy.ActionArchive {
		t.Fatalf("top actions = %+v", rep.TopActions)
	}
}
