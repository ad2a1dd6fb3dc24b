package mailbox

import "time"

const bytesPerMB = 1024 * 1024

// Snapshot is an immutable point-in-time capture of a mailbox: the threads
// plus aggregate counters computed once at construction. Nothing mutates a
// Snapshot after SnapshotFromThreads returns it.
type Snapshot struct {
	UserID     string    `json:"user_id"`
	CapturedAt time.Time `json:"captured_at"`
	Threads    []Thread  `json:"threads"`

	TotalMessages  int   `json:"total_messages"`
	TotalThreads   int   `json:"total_threads"`
	UnreadCount    int   `json:"unread_count"`
	InboxCount     int   `json:"inbox_count"`
	ArchivedCount  int   `json:"archived_count"`
	TrashCount     int   `json:"trash_count"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
}

// SnapshotFromThreads builds a snapshot by pure aggregation over threads.
// Identical input always produces identical counters.
func SnapshotFromThreads(userID string, threads []Thread, capturedAt time.Time) *Snapshot {
	s := &Snapshot{
		UserID:       userID,
		CapturedAt:   capturedAt,
		Threads:      threads,
		TotalThreads: len(threads),
	}
	for ti := range threads {
		for mi := range threads[ti].Messages {
			msg := &threads[ti].Messages[mi]
			s.TotalMessages++
			s.TotalSizeBytes += msg.SizeBytes
			if msg.Unread {
				s.UnreadCount++
			}
			switch {
			case msg.InInbox():
				s.InboxCount++
			case msg.Trashed():
				s.TrashCount++
			default:
				s.ArchivedCount++
			}
		}
	}
	return s
}

// SizeMB returns the total snapshot size in megabytes.
func (s *Snapshot) SizeMB() float64 {
	return float64(s.TotalSizeBytes) / bytesPerMB
}

// ThreadsBySender returns threads whose first message matches the given
// exact address or domain pattern.
func (s *Snapshot) ThreadsBySender(pattern string) []Thread {
	var out []Thread
	for _, t := range s.Threads {
		if len(t.Messages) > 0 && t.Messages[0].MatchesSender(pattern) {
			out = append(out, t)
		}
	}
	return out
}

// OldThreads returns threads strictly older than the given number of days.
func (s *Snapshot) OldThreads(days int, now time.Time) []Thread {
	var out []Thread
	for i := range s.Threads {
		if s.Threads[i].AgeDays(now) > days {
			out = append(out, s.Threads[i])
		}
	}
	return out
}

// LargeThreads returns threads strictly larger than minMB megabytes.
func (s *Snapshot) LargeThreads(minMB float64) []Thread {
	minBytes := int64(minMB * bytesPerMB)
	var out []Thread
	for i := range s.Threads {
		if s.Threads[i].TotalSizeBytes() > minBytes {
			out = append(out, s.Threads[i])
		}
	}
	return out
}

// ThreadsByCategory returns threads whose first message is in the category.
func (s *Snapshot) ThreadsByCategory(cat Category) []Thread {
	var out []Thread
	for _, t := range s.Threads {
		if len(t.Messages) > 0 && t.Messages[0].Category == cat {
			out = append(out, t)
		}
	}
	return out
}

// SummaryStats is the compact reporting projection of a snapshot.
type SummaryStats struct {
	UserID        string    `json:"user_id"`
	CapturedAt    time.Time `json:"captured_at"`
	TotalMessages int       `json:"total_messages"`
	TotalThreads  int       `json:"total_threads"`
	UnreadCount   int       `json:"unread_count"`
	InboxCount    int       `json:"inbox_count"`
	ArchivedCount int       `json:"archived_count"`
	TrashCount    int       `json:"trash_count"`
	SizeMB        float64   `json:"size_mb"`
}

// Summary returns the snapshot's aggregate counters for reporting.
func (s *Snapshot) Summary() SummaryStats {
	return SummaryStats{
		UserID:        s.UserID,
		CapturedAt:    s.CapturedAt,
		TotalMessages: s.TotalMessages,
		TotalThreads:  s.TotalThreads,
		UnreadCount:   s.UnreadCount,
		InboxCount:    s.InboxCount,
		ArchivedCount: s.ArchivedCount,
		TrashCount:    s.TrashCount,
		SizeMB:        roundMB(s.SizeMB()),
	}
}

func roundMB(mb float64) float64 {
	return float64(int64(mb*100+0.5)) / 100
}
