// Package cleanup plans and executes mailbox cleanup runs: it snapshots the
// mailbox, resolves every message against the policy, and either records
// the plan (dry run) or applies it action by action with retries.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joshsymonds/inboxsteward/internal/gmail"
	"github.com/joshsymonds/inboxsteward/internal/mailbox"
	"github.com/joshsymonds/inboxsteward/internal/policy"
	"github.com/joshsymonds/inboxsteward/internal/rate"
	"github.com/joshsymonds/inboxsteward/internal/run"
	"github.com/joshsymonds/inboxsteward/internal/store"
)

const defaultMaxThreads = 500

// Options controls a single cleanup invocation.
type Options struct {
	// DryRun previews actions without mutating the mailbox. The policy's
	// own DryRun flag also forces this on.
	DryRun bool
	// MaxThreads caps how many threads the snapshot fetches.
	MaxThreads int
}

// Service executes cleanup runs. Repo may be nil, in which case runs are
// returned but not persisted.
type Service struct {
	Client  gmail.Client
	Limiter rate.Limiter
	Repo    store.Repository
	Logger  *slog.Logger
	Clock   func() time.Time

	// Sleep overrides the backoff sleep between retries. Nil means real
	// time.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewService constructs a Service with sane defaults.
func NewService(client gmail.Client, limiter rate.Limiter, repo store.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if limiter == nil {
		limiter = rate.Unlimited{}
	}
	return &Service{
		Client:  client,
		Limiter: limiter,
		Repo:    repo,
		Logger:  logger,
		Clock:   time.Now,
	}
}

// Execute runs the policy against the user's mailbox and returns the run
// record. The record is persisted in every terminal state, including
// failures and cancellation. A run that completes with some failed actions
// still reports StatusCompleted; per-action errors live on the records.
func (s *Service) Execute(ctx context.Context, userID string, pol *policy.Policy, opts Options) (*run.Run, error) {
	if pol == nil {
		return nil, fmt.Errorf("execute cleanup: nil policy")
	}
	maxThreads := opts.MaxThreads
	if maxThreads <= 0 {
		maxThreads = defaultMaxThreads
	}
	dryRun := opts.DryRun || pol.DryRun

	startedAt := s.Clock()
	r := &run.Run{
		UserID:     userID,
		PolicyID:   pol.ID,
		PolicyName: pol.Name,
		Status:     run.StatusInProgress,
		DryRun:     dryRun,
		StartedAt:  startedAt,
	}
	if dryRun {
		r.ID = run.NewDryRunID(userID, startedAt)
	} else {
		r.ID = run.NewID(userID, startedAt)
	}

	logger := s.Logger.With("run_id", r.ID, "user_id", userID, "policy", pol.ID, "dry_run", dryRun)
	logger.InfoContext(ctx, "starting cleanup run")

	before, err := s.snapshot(ctx, userID, maxThreads)
	if err != nil {
		s.finish(ctx, r, run.StatusFailed, fmt.Sprintf("snapshot: %v", err), logger)
		return r, fmt.Errorf("snapshot mailbox: %w", err)
	}
	r.BeforeSnapshot = before
	r.Actions = planActions(pol, before, s.Clock())

	if len(r.Actions) == 0 {
		logger.InfoContext(ctx, "nothing to clean up", "threads", before.TotalThreads)
		status := run.StatusCompleted
		if dryRun {
			status = run.StatusDryRun
		}
		s.finish(ctx, r, status, "", logger)
		return r, nil
	}

	if dryRun {
		for i := range r.Actions {
			r.Actions[i].Status = run.ActionSkipped
		}
		logger.InfoContext(ctx, "dry run complete", "planned_actions", len(r.Actions))
		s.finish(ctx, r, run.StatusDryRun, "", logger)
		return r, nil
	}

	cancelled := s.applyActions(ctx, r, logger)
	if cancelled {
		logger.WarnContext(ctx, "cleanup run cancelled",
			"applied", r.ActionsSuccessful(), "remaining", countPending(r))
		s.finish(ctx, r, run.StatusCancelled, "cancelled before all actions were applied", logger)
		return r, nil
	}

	// The after snapshot feeds the storage-freed metric. Losing it does
	// not undo the actions already applied, so its failure is non-fatal.
	after, err := s.snapshot(ctx, userID, maxThreads)
	if err != nil {
		logger.WarnContext(ctx, "after snapshot failed", "error", err)
	} else {
		r.AfterSnapshot = after
	}

	logger.InfoContext(ctx, "cleanup run complete",
		"succeeded", r.ActionsSuccessful(),
		"failed", r.ActionsFailed(),
		"deleted", r.EmailsDeleted(),
		"archived", r.EmailsArchived())
	s.finish(ctx, r, run.StatusCompleted, "", logger)
	return r, nil
}

// Plan previews what the policy would do without touching the mailbox.
// Unlike a dry run, the action records come back still pending. The plan is
// persisted like any other run.
func (s *Service) Plan(ctx context.Context, userID string, pol *policy.Policy, opts Options) (*run.Run, error) {
	if pol == nil {
		return nil, fmt.Errorf("plan cleanup: nil policy")
	}
	maxThreads := opts.MaxThreads
	if maxThreads <= 0 {
		maxThreads = defaultMaxThreads
	}

	startedAt := s.Clock()
	r := &run.Run{
		ID:         run.NewDryRunID(userID, startedAt),
		UserID:     userID,
		PolicyID:   pol.ID,
		PolicyName: pol.Name,
		Status:     run.StatusInProgress,
		DryRun:     true,
		StartedAt:  startedAt,
	}

	logger := s.Logger.With("run_id", r.ID, "user_id", userID, "policy", pol.ID)
	logger.InfoContext(ctx, "planning cleanup run")

	snap, err := s.snapshot(ctx, userID, maxThreads)
	if err != nil {
		s.finish(ctx, r, run.StatusFailed, fmt.Sprintf("snapshot: %v", err), logger)
		return r, fmt.Errorf("snapshot mailbox: %w", err)
	}
	r.BeforeSnapshot = snap
	r.Actions = planActions(pol, snap, s.Clock())

	logger.InfoContext(ctx, "cleanup plan ready", "planned_actions", len(r.Actions))
	s.finish(ctx, r, run.StatusDryRun, "", logger)
	return r, nil
}

func (s *Service) snapshot(ctx context.Context, userID string, maxThreads int) (*mailbox.Snapshot, error) {
	if err := s.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.Client.Snapshot(ctx, userID, maxThreads)
}

// planActions resolves every message in the snapshot to pending action
// records.
func planActions(pol *policy.Policy, snap *mailbox.Snapshot, now time.Time) []run.ActionRecord {
	var records []run.ActionRecord
	for ti := range snap.Threads {
		t := &snap.Threads[ti]
		for mi := range t.Messages {
			msg := &t.Messages[mi]
			for _, a := range pol.ActionsForMessage(msg, now) {
				records = append(records, run.ActionRecord{
					MessageID:      msg.ID,
					ThreadID:       msg.ThreadID,
					ActionType:     a.Kind,
					ActionLabel:    a.Label,
					Status:         run.ActionPending,
					MessageSubject: msg.Subject,
					MessageFrom:    msg.From.String(),
					MessageDate:    msg.Date,
				})
			}
		}
	}
	return records
}

// applyActions applies every pending record in place, isolating failures to
// the record they occurred on. It reports whether the run was cancelled.
// Records are grouped by message on entry, so the cancellation check
// between messages never splits one message's actions.
func (s *Service) applyActions(ctx context.Context, r *run.Run, logger *slog.Logger) bool {
	lastMessageID := ""
	for i := range r.Actions {
		rec := &r.Actions[i]
		if rec.MessageID != lastMessageID {
			lastMessageID = rec.MessageID
			if ctx.Err() != nil {
				return true
			}
		}

		if rec.ActionType == policy.ActionSkip {
			rec.Status = run.ActionSkipped
			continue
		}

		if err := s.Limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return true
			}
			rec.Status = run.ActionFailed
			rec.ErrorMessage = err.Error()
			continue
		}

		err := s.retry(ctx, string(rec.ActionType), func(ctx context.Context) error {
			return s.applyOne(ctx, rec)
		})
		now := s.Clock()
		rec.ExecutedAt = &now
		if err != nil {
			if ctx.Err() != nil {
				return true
			}
			rec.Status = run.ActionFailed
			rec.ErrorMessage = err.Error()
			logger.WarnContext(ctx, "action failed",
				"message_id", rec.MessageID, "action", rec.ActionType, "error", err)
			continue
		}
		rec.Status = run.ActionSuccess
	}
	return false
}

func (s *Service) applyOne(ctx context.Context, rec *run.ActionRecord) error {
	switch rec.ActionType {
	case policy.ActionDelete:
		return s.Client.Trash(ctx, rec.MessageID)
	case policy.ActionArchive:
		return s.Client.Archive(ctx, rec.MessageID)
	case policy.ActionMarkRead:
		return s.Client.MarkRead(ctx, rec.MessageID)
	case policy.ActionMarkUnread:
		return s.Client.MarkUnread(ctx, rec.MessageID)
	case policy.ActionStar:
		return s.Client.Star(ctx, rec.MessageID)
	case policy.ActionUnstar:
		return s.Client.Unstar(ctx, rec.MessageID)
	case policy.ActionApplyLabel:
		return s.Client.ModifyLabels(ctx, rec.MessageID, []string{rec.ActionLabel}, nil)
	case policy.ActionRemoveLabel:
		return s.Client.ModifyLabels(ctx, rec.MessageID, nil, []string{rec.ActionLabel})
	default:
		return fmt.Errorf("unknown action %q", rec.ActionType)
	}
}

// finish stamps the terminal state and persists the run. Persistence uses a
// fresh context so a cancelled run still reaches the audit trail.
func (s *Service) finish(ctx context.Context, r *run.Run, status run.Status, errMsg string, logger *slog.Logger) {
	now := s.Clock()
	r.Status = status
	r.CompletedAt = &now
	if errMsg != "" {
		r.ErrorMessage = errMsg
	}
	if s.Repo == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.Repo.SaveRun(saveCtx, r); err != nil {
		logger.ErrorContext(ctx, "persist run failed", "error", err)
	}
}

func countPending(r *run.Run) int {
	n := 0
	for i := range r.Actions {
		if r.Actions[i].Status == run.ActionPending {
			n++
		}
	}
	return n
}
