// Package presence keeps a live roster of signed-in portal users.
//
// The portal server touches the tracker on every request that carries an
// identity and marks the user idle on logout. The same account may still be
// signed in elsewhere, and its next request revives the entry. A background
// reaper marks users idle after a threshold and later evicts them, so the
// roster only grows with real traffic.
package presence

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/drivehub/internal/model"
)

// Entry is one user's presence snapshot.
type Entry struct {
	UserID       int64     `json:"user_id"`
	Name         string    `json:"name"`
	Tier         string    `json:"tier"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
	LastPath     string    `json:"last_path"`
	RequestCount int64     `json:"request_count"`
	IdleSecs     float64   `json:"idle_secs"`
	Idle         bool      `json:"idle,omitempty"`
	IdleSince    time.Time `json:"idle_since,omitzero"`
}

// ReaperConfig configures the background idle reaper.
type ReaperConfig struct {
	// IdleAfter is how long a user may go without a request before being
	// marked idle. Default: 15 minutes.
	IdleAfter time.Duration

	// EvictAfter is how long an idle user stays in the roster before being
	// dropped. Default: 30 minutes.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper scans the roster.
	// Default: 60 seconds.
	SweepInterval time.Duration

	// OnIdle is called for each user newly marked idle, outside the lock.
	OnIdle func(userID int64)
}

func (c *ReaperConfig) withDefaults() *ReaperConfig {
	out := ReaperConfig{}
	if c != nil {
		out = *c
	}
	if out.IdleAfter == 0 {
		out.IdleAfter = 15 * time.Minute
	}
	if out.EvictAfter == 0 {
		out.EvictAfter = 30 * time.Minute
	}
	if out.SweepInterval == 0 {
		out.SweepInterval = 60 * time.Second
	}
	return &out
}

// Tracker maintains the in-memory roster. It is safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	users  map[int64]*userState
	now    func() time.Time
	logger *slog.Logger

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type userState struct {
	name      string
	tier      model.Tier
	firstSeen time.Time
	lastSeen  time.Time
	lastPath  string
	requests  int64
	idle      bool
	idleSince time.Time
}

// New creates an empty tracker. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		users:  make(map[int64]*userState),
		now:    time.Now,
		logger: logger,
	}
}

// Touch records a request by id for path. Identities without a positive id
// are ignored.
func (t *Tracker) Touch(id model.Identity, path string) {
	if !id.WellFormed() {
		return
	}

	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.users[id.ID]
	if !ok {
		state = &userState{firstSeen: now}
		t.users[id.ID] = state
	}
	if state.idle {
		t.logger.Debug("presence: user active again", "user_id", id.ID)
		state.idle = false
		state.idleSince = time.Time{}
	}

	state.name = id.DisplayName
	state.tier = id.Tier()
	state.lastSeen = now
	state.lastPath = path
	state.requests++
}

// MarkIdle flags a tracked user idle now. The reaper evicts the entry unless
// a Touch revives it first. Unknown users are ignored.
func (t *Tracker) MarkIdle(userID int64) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.users[userID]; ok && !s.idle {
		s.idle = true
		s.idleSince = now
	}
}

// ActiveCount is the number of users not marked idle.
func (t *Tracker) ActiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, s := range t.users {
		if !s.idle {
			n++
		}
	}
	return n
}

// Roster returns a snapshot of tracked users, most recently active first.
// Users whose last request is older than stale are left out; pass 0 to
// include everyone.
func (t *Tracker) Roster(stale time.Duration) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	entries := make([]Entry, 0, len(t.users))
	for id, s := range t.users {
		idle := now.Sub(s.lastSeen)
		if stale > 0 && idle > stale {
			continue
		}
		entries = append(entries, Entry{
			UserID:       id,
			Name:         s.name,
			Tier:         s.tier.String(),
			FirstSeen:    s.firstSeen,
			LastSeen:     s.lastSeen,
			LastPath:     s.lastPath,
			RequestCount: s.requests,
			IdleSecs:     idle.Seconds(),
			Idle:         s.idle,
			IdleSince:    s.idleSince,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].UserID < entries[j].UserID
		}
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})
	return entries
}

// StartReaper launches the background sweep. Call Stop to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	cfg = cfg.withDefaults()

	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(cfg)
	t.logger.Info("presence: reaper started",
		"idle_after", cfg.IdleAfter,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

func (t *Tracker) sweep(cfg *ReaperConfig) {
	now := t.now()
	var newlyIdle []int64

	t.mu.Lock()
	for id, s := range t.users {
		if s.idle {
			if now.Sub(s.idleSince) > cfg.EvictAfter {
				delete(t.users, id)
			}
			continue
		}
		if now.Sub(s.lastSeen) > cfg.IdleAfter {
			s.idle = true
			s.idleSince = now
			newlyIdle = append(newlyIdle, id)
		}
	}
	t.mu.Unlock()

	for _, id := range newlyIdle {
		t.logger.Info("presence: user idle", "user_id", id, "threshold", cfg.IdleAfter)
		if cfg.OnIdle != nil {
			cfg.OnIdle(id)
		}
	}
}
