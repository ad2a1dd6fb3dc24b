// Package run holds the audit model: one Run per cleanup attempt, composed
// of per-message action records with their outcomes. A Run in a terminal
// status is immutable and is the unit of audit and undo reference.
package run

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
	"github.com/joshsymonds/inboxsteward/internal/policy"
)

// Status is the lifecycle state of a cleanup run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDryRun     Status = "dry_run"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ActionStatus is the outcome of one planned action.
type ActionStatus string

const (
	ActionPending ActionStatus = "pending"
	ActionSuccess ActionStatus = "success"
	ActionFailed  ActionStatus = "failed"
	ActionSkipped ActionStatus = "skipped" // identified but not applied (dry-run)
)

// ActionRecord is the audit record of a single planned or executed action.
// Subject, From and Date are denormalized so the trail stays readable after
// the message itself is deleted.
type ActionRecord struct {
	MessageID    string            `json:"message_id"`
	ThreadID     string            `json:"thread_id,omitempty"`
	ActionType   policy.ActionKind `json:"action_type"`
	ActionLabel  string            `json:"action_label,omitempty"`
	Status       ActionStatus      `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	ExecutedAt   *time.Time        `json:"executed_at,omitempty"`

	MessageSubject string    `json:"message_subject,omitempty"`
	MessageFrom    string    `json:"message_from,omitempty"`
	MessageDate    time.Time `json:"message_date,omitempty"`
}

// Run records one cleanup attempt against a snapshot.
type Run struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	PolicyID   string `json:"policy_id"`
	PolicyName string `json:"policy_name"`
	Status     Status `json:"status"`
	DryRun     bool   `json:"dry_run"`

	BeforeSnapshot *mailbox.Snapshot `json:"before_snapshot,omitempty"`
	AfterSnapshot  *mailbox.Snapshot `json:"after_snapshot,omitempty"`

	Actions []ActionRecord `json:"actions"`

	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// NewID builds a unique run identifier: run_<user>_<unix>_<uuid-prefix>.
func NewID(userID string, startedAt time.Time) string {
	return fmt.Sprintf("run_%s_%d_%s", userID, startedAt.Unix(), uuid.NewString()[:6])
}

// NewDryRunID builds a unique identifier for preview-only runs:
// dry_run_<user>_<unix>_<uuid-prefix>.
func NewDryRunID(userID string, startedAt time.Time) string {
	return fmt.Sprintf("dry_run_%s_%d_%s", userID, startedAt.Unix(), uuid.NewString()[:6])
}

// DurationSeconds returns the wall-clock run duration, or 0 while running.
func (r *Run) DurationSeconds() float64 {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt).Seconds()
}

// ActionsSuccessful counts actions that completed successfully.
func (r *Run) ActionsSuccessful() int { return r.countStatus(ActionSuccess) }

// ActionsFailed counts actions the adapter rejected after retries.
func (r *Run) ActionsFailed() int { return r.countStatus(ActionFailed) }

// ActionsSkipped counts actions identified but not applied.
func (r *Run) ActionsSkipped() int { return r.countStatus(ActionSkipped) }

func (r *Run) countStatus(s ActionStatus) int {
	n := 0
	for i := range r.Actions {
		if r.Actions[i].Status == s {
			n++
		}
	}
	return n
}

// ActionsByType returns a histogram of planned actions keyed by kind.
func (r *Run) ActionsByType() map[policy.ActionKind]int {
	out := make(map[policy.ActionKind]int)
	for i := range r.Actions {
		out[r.Actions[i].ActionType]++
	}
	return out
}

// EmailsDeleted counts messages successfully moved to trash.
func (r *Run) EmailsDeleted() int { return r.countSuccessful(policy.ActionDelete) }

// EmailsArchived counts messages successfully archived.
func (r *Run) EmailsArchived() int { return r.countSuccessful(policy.ActionArchive) }

// EmailsLabeled counts messages that successfully received a label.
func (r *Run) EmailsLabeled() int { return r.countSuccessful(policy.ActionApplyLabel) }

func (r *Run) countSuccessful(kind policy.ActionKind) int {
	n := 0
	for i := range r.Actions {
		if r.Actions[i].ActionType == kind && r.Actions[i].Status == ActionSuccess {
			n++
		}
	}
	return n
}

// StorageFreedMB returns before-minus-after size, and false when either
// snapshot is missing (dry runs never have an after snapshot).
func (r *Run) StorageFreedMB() (float64, bool) {
	if r.BeforeSnapshot == nil || r.AfterSnapshot == nil {
		return 0, false
	}
	return r.BeforeSnapshot.SizeMB() - r.AfterSnapshot.SizeMB(), true
}

// Summary is the reporting projection of a terminal run.
type Summary struct {
	RunID      string  `json:"run_id"`
	Status     Status  `json:"status"`
	PolicyName string  `json:"policy"`
	StartedAt  string  `json:"started_at"`
	DurationS  float64 `json:"duration_seconds"`

	ActionsTotal      int                       `json:"actions_total"`
	ActionsSuccessful int                       `json:"actions_successful"`
	ActionsFailed     int                       `json:"actions_failed"`
	ActionsSkipped    int                       `json:"actions_skipped"`
	ActionsByType     map[policy.ActionKind]int `json:"actions_by_type"`

	EmailsDeleted  int `json:"emails_deleted"`
	EmailsArchived int `json:"emails_archived"`
	EmailsLabeled  int `json:"emails_labeled"`

	StorageFreedMB *float64 `json:"storage_freed_mb,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Summarize builds the reporting projection.
func (r *Run) Summarize() Summary {
	s := Summary{
		RunID:             r.ID,
		Status:            r.Status,
		PolicyName:        r.PolicyName,
		StartedAt:         r.StartedAt.Format(time.RFC3339),
		DurationS:         r.DurationSeconds(),
		ActionsTotal:      len(r.Actions),
		ActionsSuccessful: r.ActionsSuccessful(),
		ActionsFailed:     r.ActionsFailed(),
		ActionsSkipped:    r.ActionsSkipped(),
		ActionsByType:     r.ActionsByType(),
		EmailsDeleted:     r.EmailsDeleted(),
		EmailsArchived:    r.EmailsArchived(),
		EmailsLabeled:     r.EmailsLabeled(),
		Error:             r.ErrorMessage,
	}
	if freed, ok := r.StorageFreedMB(); ok {
		s.StorageFreedMB = &freed
	}
	return s
}
