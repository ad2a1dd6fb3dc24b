package mailbox

import "time"

// Stats aggregates per-category and age-bucket counts over a snapshot,
// used for inbox health reporting.
type Stats struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`

	TotalMessages   int `json:"total_messages"`
	UnreadMessages  int `json:"unread_messages"`
	StarredMessages int `json:"starred_messages"`

	PrimaryMessages    int `json:"primary_messages"`
	SocialMessages     int `json:"social_messages"`
	PromotionsMessages int `json:"promotions_messages"`
	UpdatesMessages    int `json:"updates_messages"`
	ForumsMessages     int `json:"forums_messages"`

	TotalSizeMB float64 `json:"total_size_mb"`

	MessagesLast7Days      int `json:"messages_last_7_days"`
	MessagesLast30Days     int `json:"messages_last_30_days"`
	MessagesLast90Days     int `json:"messages_last_90_days"`
	MessagesOlderThan90    int `json:"messages_older_than_90_days"`
	MessagesWithAttachment int `json:"messages_with_attachments"`

	AverageThreadSize float64 `json:"average_thread_size"`
}

// StatsFromSnapshot computes mailbox statistics from a snapshot.
func StatsFromSnapshot(s *Snapshot) Stats {
	st := Stats{
		UserID:        s.UserID,
		Timestamp:     s.CapturedAt,
		TotalMessages: s.TotalMessages,
		TotalSizeMB:   s.SizeMB(),
	}
	now := s.CapturedAt
	for ti := range s.Threads {
		for mi := range s.Threads[ti].Messages {
			msg := &s.Threads[ti].Messages[mi]
			if msg.Unread {
				st.UnreadMessages++
			}
			if msg.Starred {
				st.StarredMessages++
			}
			if msg.HasAttachments {
				st.MessagesWithAttachment++
			}
			switch msg.Category {
			case CategoryPrimary:
				st.PrimaryMessages++
			case CategorySocial:
				st.SocialMessages++
			case CategoryPromotions:
				st.PromotionsMessages++
			case CategoryUpdates:
				st.UpdatesMessages++
			case CategoryForums:
				st.ForumsMessages++
			}
			switch age := msg.AgeDays(now); {
			case age <= 7:
				st.MessagesLast7Days++
			case age <= 30:
				st.MessagesLast30Days++
			case age <= 90:
				st.MessagesLast90Days++
			default:
				st.MessagesOlderThan90++
			}
		}
	}
	if s.TotalThreads > 0 {
		st.AverageThreadSize = float64(s.TotalMessages) / float64(s.TotalThreads)
	}
	return st
}

// HealthScore scores mailbox hygiene 0-100 (higher is better), penalizing
// unread backlog, stale mail, and a promotions-heavy inbox.
func (st Stats) HealthScore() float64 {
	if st.TotalMessages == 0 {
		return 100
	}
	score := 100.0
	total := float64(st.TotalMessages)

	score -= float64(st.UnreadMessages) / total * 30
	score -= float64(st.MessagesOlderThan90) / total * 20

	promoRatio := float64(st.PromotionsMessages) / total
	if promoRatio > 0.2 {
		score -= (promoRatio - 0.2) * 30
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
