package model

import (
	"time"
)

// Session records one engine run against a project: which task carried it,
// when it ran and how many content units it completed before ending.
type Session struct {
	ID        string
	ProjectID string
	TaskID    TaskID
	StartedAt time.Time
	EndedAt   *time.Time
	UnitsDone int
}

// UsageEntry is an audit record of a single billable or countable
// operation performed while generating.
type UsageEntry struct {
	ID        int64
	ProjectID string
	Operation string
	Detail    string
	Units     int
	Duration  time.Duration
	CreatedAt time.Time
}

// CacheEntry is a reusable piece of generated content, keyed by where it
// belongs and a caller-chosen key. Expired entries behave as misses.
type CacheEntry struct {
	ProjectID string
	Scope     string
	Kind      string
	Key       string
	Content   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its expiry at the given time.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
