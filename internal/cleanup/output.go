package cleanup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshsymonds/inboxsteward/internal/run"
)

const subjectDisplayLimit = 60

// PrintRunHuman writes a readable run summary to the provided writer.
func PrintRunHuman(r *run.Run, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	sum := r.Summarize()

	var builder strings.Builder
	mode := "cleanup"
	if r.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(&builder, "inboxsteward %s: %s (%s)\n", mode, sum.RunID, sum.Status)
	fmt.Fprintf(&builder, "  policy:  %s\n", sum.PolicyName)
	fmt.Fprintf(&builder, "  actions: %d total, %d succeeded, %d failed, %d skipped\n",
		sum.ActionsTotal, sum.ActionsSuccessful, sum.ActionsFailed, sum.ActionsSkipped)
	if sum.EmailsDeleted > 0 || sum.EmailsArchived > 0 || sum.EmailsLabeled > 0 {
		fmt.Fprintf(&builder, "  emails:  %d deleted, %d archived, %d labeled\n",
			sum.EmailsDeleted, sum.EmailsArchived, sum.EmailsLabeled)
	}
	if sum.StorageFreedMB != nil {
		fmt.Fprintf(&builder, "  storage: %.2f MB freed\n", *sum.StorageFreedMB)
	}
	if sum.Error != "" {
		fmt.Fprintf(&builder, "  error:   %s\n", sum.Error)
	}

	if r.DryRun && len(r.Actions) > 0 {
		builder.WriteString("\nPlanned actions:\n")
		for i := range r.Actions {
			a := &r.Actions[i]
			fmt.Fprintf(&builder, "  %-12s %s\n",
				a.ActionType, truncate(a.MessageSubject, subjectDisplayLimit))
		}
	}
	if failed := sum.ActionsFailed; failed > 0 {
		builder.WriteString("\nFailed actions:\n")
		for i := range r.Actions {
			a := &r.Actions[i]
			if a.Status != run.ActionFailed {
				continue
			}
			fmt.Fprintf(&builder, "  %-12s %s: %s\n",
				a.ActionType, truncate(a.MessageSubject, subjectDisplayLimit), a.ErrorMessage)
		}
	}

	if _, err := io.WriteString(w, builder.String()); err != nil {
		return fmt.Errorf("write run summary: %w", err)
	}
	return nil
}

// PrintAnalysisHuman writes a readable mailbox analysis to the provided
// writer.
func PrintAnalysisHuman(a *Analysis, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "inboxsteward analysis for %s\n", a.UserID)
	fmt.Fprintf(&builder, "  threads:  %d (%d messages, %.2f MB)\n",
		a.Summary.TotalThreads, a.Summary.TotalMessages, a.Stats.TotalSizeMB)
	fmt.Fprintf(&builder, "  unread:   %d\n", a.Stats.UnreadMessages)
	fmt.Fprintf(&builder, "  health:   %.0f/100\n", a.HealthScore)
	if a.PlannedActions > 0 {
		fmt.Fprintf(&builder, "  planned:  %d actions\n", a.PlannedActions)
	}
	if len(a.Threads) > 0 {
		builder.WriteString("\nThreads with the most planned actions:\n")
		for _, t := range a.Threads {
			fmt.Fprintf(&builder, "  %3d  %s\n", t.TotalActions, truncate(t.Subject, subjectDisplayLimit))
		}
	}
	if len(a.Recommendations) > 0 {
		builder.WriteString("\nRecommendations:\n")
		for _, rec := range a.Recommendations {
			fmt.Fprintf(&builder, "  - %s\n", rec)
		}
	}
	if _, err := io.WriteString(w, builder.String()); err != nil {
		return fmt.Errorf("write analysis: %w", err)
	}
	return nil
}

// WriteJSON serializes v to disk.
func WriteJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func truncate(s string, limit int) string {
	if limit <= 3 || len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
