package model

import "time"

// PendingBookmark is a bookmark captured outside the main UI (context menu,
// CLI) and waiting to be picked up. Timestamp is in Unix milliseconds.
type PendingBookmark struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}

// NewPendingBookmark stamps a pending bookmark with a fresh id and now.
func NewPendingBookmark(url, title string, now time.Time) PendingBookmark {
	return PendingBookmark{
		ID:        NewPendingID(),
		URL:       url,
		Title:     title,
		Timestamp: now.UnixMilli(),
	}
}

// Expired reports whether the handoff is older than ttl.
func (p PendingBookmark) Expired(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-p.Timestamp >= ttl.Milliseconds()
}
