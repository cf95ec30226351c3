package lyrics

import (
	"sync"
	"time"
)

// DefaultGrace is how long a manual scroll suppresses auto-scroll.
const DefaultGrace = 3 * time.Second

// Follower decides when a lyric view should auto-scroll. It requests a scroll
// only when the active line changes and the user has not scrolled manually
// within the grace window.
type Follower struct {
	mu         sync.Mutex
	grace      time.Duration
	now        func() time.Time
	lastIndex  int
	lastManual time.Time
}

// NewFollower returns a follower with the given grace window.
func NewFollower(grace time.Duration) *Follower {
	if grace < 0 {
		grace = 0
	}
	return &Follower{grace: grace, now: time.Now, lastIndex: -1}
}

// Update records the active index and reports whether the view should scroll
// to it.
func (f *Follower) Update(index int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index == f.lastIndex {
		return false
	}
	f.lastIndex = index
	if index < 0 {
		return false
	}
	if !f.lastManual.IsZero() && f.now().Sub(f.lastManual) < f.grace {
		return false
	}
	return true
}

// ManualScroll marks a user-initiated scroll.
func (f *Follower) ManualScroll() {
	f.mu.Lock()
	f.lastManual = f.now()
	f.mu.Unlock()
}

// Reset forgets the last index, e.g. after a seek or a new lyric file.
func (f *Follower) Reset() {
	f.mu.Lock()
	f.lastIndex = -1
	f.mu.Unlock()
}

// Center returns the viewport offset that puts line index in the middle of a
// height-row view over total lines.
func Center(index, total, height int) int {
	if height <= 0 || total <= height {
		return 0
	}
	offset := index - height/2
	if offset < 0 {
		return 0
	}
	if limit := total - height; offset > limit {
		return limit
	}
	return offset
}
