package run

import (
	"sort"
	"time"

	"github.com/joshsymonds/inboxsteward/internal/policy"
)

// Report aggregates runs over a reporting period for one user.
type Report struct {
	UserID      string `json:"user_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`

	TotalRuns      int `json:"total_runs"`
	CompletedRuns  int `json:"completed_runs"`
	FailedRuns     int `json:"failed_runs"`
	DryRuns        int `json:"dry_runs"`
	EmailsDeleted  int `json:"emails_deleted"`
	EmailsArchived int `json:"emails_archived"`
	EmailsLabeled  int `json:"emails_labeled"`

	StorageFreedMB     float64 `json:"storage_freed_mb"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`

	// TopActions lists action kinds by frequency, most common first.
	TopActions []ActionCount `json:"top_actions,omitempty"`
}

// ActionCount is one entry of the action frequency ranking.
type ActionCount struct {
	Action policy.ActionKind `json:"action"`
	Count  int               `json:"count"`
}

// BuildReport aggregates the runs that started inside [start, end).
// Runs outside the window or for other users are ignored.
func BuildReport(userID string, runs []*Run, start, end time.Time) Report {
	rep := Report{
		UserID:      userID,
		PeriodStart: start.Format(time.RFC3339),
		PeriodEnd:   end.Format(time.RFC3339),
	}

	byType := make(map[policy.ActionKind]int)
	var totalDuration float64
	var timed int

	for _, r := range runs {
		if r.UserID != userID || r.StartedAt.Before(start) || !r.StartedAt.Before(end) {
			continue
		}
		rep.TotalRuns++
		switch r.Status {
		case StatusCompleted:
			rep.CompletedRuns++
		case StatusFailed:
			rep.FailedRuns++
		case StatusDryRun:
			rep.DryRuns++
		}
		rep.EmailsDeleted += r.EmailsDeleted()
		rep.EmailsArchived += r.EmailsArchived()
		rep.EmailsLabeled += r.EmailsLabeled()
		if freed, ok := r.StorageFreedMB(); ok && freed > 0 {
			rep.StorageFreedMB += freed
		}
		if d := r.DurationSeconds(); d > 0 {
			totalDuration += d
			timed++
		}
		for kind, n := range r.ActionsByType() {
			byType[kind] += n
		}
	}

	if timed > 0 {
		rep.AvgDurationSeconds = totalDuration / float64(timed)
	}

	for kind, n := range byType {
		rep.TopActions = append(rep.TopActions, ActionCount{Action: kind, Count: n})
	}
	sort.Slice(rep.TopActions, func(i, j int) bool {
		if rep.TopActions[i].Count != rep.TopActions[j].Count {
			return rep.TopActions[i].Count > rep.TopActions[j].Count
		}
		return rep.TopActions[i].Action < rep.TopActions[j].Action
	})

	return rep
}
