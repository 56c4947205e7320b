package service

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"weatherbet/models"
)

const (
	// LockTimeout is how long the placement lock may be held before it is force-released
	LockTimeout = 10 * time.Second
	// DefaultLockReleaseDelay keeps the lock after a successful placement to throttle spam
	DefaultLockReleaseDelay = 2 * time.Second
	// WindWindow is the rolling window of the wind counter
	WindWindow = 12 * time.Hour
)

// DefaultCaps are the per-group placement caps
var DefaultCaps = map[models.CategoryGroup]int{
	models.GroupRain:        3,
	models.GroupTemperature: 2,
	models.GroupWind:        2,
}

// RateLimiter owns the advisory placement lock and the quota rules. The lock is
// local to the process. Counter state is passed in and persisted by the caller.
type RateLimiter struct {
	mu        sync.Mutex
	now       func() time.Time
	caps      map[models.CategoryGroup]int
	held      bool
	heldSince time.Time
	releaseAt time.Time
}

// NewRateLimiter creates a limiter with the default caps
func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	caps := make(map[models.CategoryGroup]int, len(DefaultCaps))
	for g, c := range DefaultCaps {
		caps[g] = c
	}
	return &RateLimiter{now: now, caps: caps}
}

// TryAcquire takes the placement lock. A lock held past LockTimeout is
// force-released first; a lock whose delayed release is due is released.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.expireLocked(now)
	if r.held {
		return false
	}
	r.held = true
	r.heldSince = now
	r.releaseAt = time.Time{}
	return true
}

// IsLocked reports whether a placement would currently be rejected by the lock
func (r *RateLimiter) IsLocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireLocked(r.now())
	return r.held
}

// Release frees the lock immediately
func (r *RateLimiter) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.held = false
	r.releaseAt = time.Time{}
}

// ReleaseAfter frees the lock once d has elapsed. A non-positive d releases now.
func (r *RateLimiter) ReleaseAfter(d time.Duration) {
	if d <= 0 {
		r.Release()
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.held {
		r.releaseAt = r.now().Add(d)
	}
}

func (r *RateLimiter) expireLocked(now time.Time) {
	if !r.held {
		return
	}
	if !r.releaseAt.IsZero() && !now.Before(r.releaseAt) {
		r.held = false
		r.releaseAt = time.Time{}
		return
	}
	if now.Sub(r.heldSince) >= LockTimeout {
		log.WithField("heldFor", now.Sub(r.heldSince)).Warn("Force releasing stale placement lock")
		r.held = false
		r.releaseAt = time.Time{}
	}
}

// Cap returns the placement cap of a group
func (r *RateLimiter) Cap(group models.CategoryGroup) int {
	return r.caps[group]
}

// currentWindow returns the group counter after applying any due reset
func (r *RateLimiter) currentWindow(state *models.RateLimitState, group models.CategoryGroup, now time.Time) models.CounterWindow {
	w := state.Window(group)
	if w.WindowStart.IsZero() {
		return models.CounterWindow{WindowStart: now}
	}

	switch group {
	case models.GroupWind:
		if !now.Before(w.WindowStart.Add(WindWindow)) {
			return models.CounterWindow{WindowStart: now}
		}
	default:
		if !sameCalendarDay(w.WindowStart, now) {
			return models.CounterWindow{WindowStart: startOfDay(now)}
		}
	}
	return w
}

// Remaining returns the placements left in the group's current window
func (r *RateLimiter) Remaining(state *models.RateLimitState, category models.Category) int {
	group := category.Group()
	w := r.currentWindow(state, group, r.now())
	remaining := r.Cap(group) - w.Count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Record counts a successful placement against the category's group
func (r *RateLimiter) Record(state *models.RateLimitState, category models.Category) {
	group := category.Group()
	w := r.currentWindow(state, group, r.now())
	w.Count++
	state.SetWindow(group, w)
}

// ResetsAt returns when the category's current window ends
func (r *RateLimiter) ResetsAt(state *models.RateLimitState, category models.Category) time.Time {
	now := r.now()
	if category.Group() == models.GroupWind {
		return r.currentWindow(state, models.GroupWind, now).WindowStart.Add(WindWindow)
	}
	return GetNextDailyReset(now)
}
