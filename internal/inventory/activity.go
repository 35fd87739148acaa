package inventory

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActivityKind classifies an activity entry.
type ActivityKind string

const (
	ActivityCreate ActivityKind = "create"
	ActivityUpdate ActivityKind = "update"
	ActivityDelete ActivityKind = "delete"
	ActivityCheck  ActivityKind = "check"
)

// DefaultActivityLimit is how many entries the log keeps.
const DefaultActivityLimit = 10

// Activity is one local, never persisted, record of something the user did.
type Activity struct {
	ID      string
	Kind    ActivityKind
	Message string
	At      time.Time
}

// ActivityLog keeps the most recent entries, newest first.
type ActivityLog struct {
	mu      sync.Mutex
	limit   int
	entries []Activity
	now     func() time.Time
}

// NewActivityLog creates a log holding at most limit entries.
func NewActivityLog(limit int) *ActivityLog {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	return &ActivityLog{limit: limit, now: time.Now}
}

// Add records a new entry and evicts the oldest one beyond the limit.
func (l *ActivityLog) Add(kind ActivityKind, message string) Activity {
	a := Activity{ID: uuid.NewString(), Kind: kind, Message: message, At: l.now()}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]Activity{a}, l.entries...)
	if len(l.entries) > l.limit {
		l.entries = l.entries[:l.limit]
	}
	return a
}

// Entries returns a copy of the log, newest first.
func (l *ActivityLog) Entries() []Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Activity, len(l.entries))
	copy(out, l.entries)
	return out
}
