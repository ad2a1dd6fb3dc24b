package cleanup

import (
	"context"
	"fmt"
	"sort"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
	"github.com/joshsymonds/inboxsteward/internal/policy"
)

const analysisThreadDisplayLimit = 20

// Analysis reports mailbox health and what the policy would do, without
// touching anything.
type Analysis struct {
	UserID          string                  `json:"user_id"`
	Summary         mailbox.SummaryStats    `json:"summary"`
	Stats           mailbox.Stats           `json:"stats"`
	HealthScore     float64                 `json:"health_score"`
	PlannedActions  int                     `json:"planned_actions"`
	Threads         []policy.ThreadAnalysis `json:"threads,omitempty"`
	Recommendations []string                `json:"recommendations,omitempty"`
}

// Analyze snapshots the mailbox and evaluates the policy read-only. The
// thread list is sorted by planned action count and truncated for display.
func (s *Service) Analyze(ctx context.Context, userID string, pol *policy.Policy, maxThreads int) (*Analysis, error) {
	if maxThreads <= 0 {
		maxThreads = defaultMaxThreads
	}
	snap, err := s.snapshot(ctx, userID, maxThreads)
	if err != nil {
		return nil, fmt.Errorf("snapshot mailbox: %w", err)
	}
	now := s.Clock()

	stats := mailbox.StatsFromSnapshot(snap)
	analysis := &Analysis{
		UserID:      userID,
		Summary:     snap.Summary(),
		Stats:       stats,
		HealthScore: stats.HealthScore(),
	}

	if pol != nil {
		for i := range snap.Threads {
			ta := pol.AnalyzeThread(&snap.Threads[i], now)
			if ta.TotalActions == 0 {
				continue
			}
			analysis.PlannedActions += ta.TotalActions
			analysis.Threads = append(analysis.Threads, ta)
		}
		sort.SliceStable(analysis.Threads, func(i, j int) bool {
			return analysis.Threads[i].TotalActions > analysis.Threads[j].TotalActions
		})
		if len(analysis.Threads) > analysisThreadDisplayLimit {
			analysis.Threads = analysis.Threads[:analysisThreadDisplayLimit]
		}
	}

	analysis.Recommendations = recommendations(snap, stats)
	return analysis, nil
}

// recommendations derives plain-language suggestions from mailbox stats.
func recommendations(snap *mailbox.Snapshot, stats mailbox.Stats) []string {
	var recs []string
	if n := stats.PromotionsMessages; n > 50 {
		recs = append(recs, fmt.Sprintf("Archive %d promotional messages to declutter your inbox", n))
	}
	if snap.TotalMessages > 0 {
		ratio := float64(snap.UnreadCount) / float64(snap.TotalMessages)
		if ratio > 0.3 {
			recs = append(recs, fmt.Sprintf("%d messages are unread (%.0f%%); consider a mark-read sweep", snap.UnreadCount, ratio*100))
		}
	}
	if stats.MessagesOlderThan90 > 20 {
		recs = append(recs, fmt.Sprintf("%d messages are older than 90 days; a retention policy would keep this bounded", stats.MessagesOlderThan90))
	}
	if large := snap.LargeThreads(5.0); len(large) > 0 {
		recs = append(recs, fmt.Sprintf("%d threads exceed 5 MB; deleting old attachments would free storage", len(large)))
	}
	return recs
}
