package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/drivehub/internal/model"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	tr := New(nil)
	tr.now = clock.Now
	return tr, clock
}

var (
	ada = model.Identity{ID: 1, DisplayName: "Ada", Roles: model.NewRoleSet(model.RoleAdmin)}
	cal = model.Identity{ID: 2, DisplayName: "Cal", Roles: model.NewRoleSet(model.RoleClient)}
	nia = model.Identity{ID: 3, DisplayName: "Nia", Roles: model.NewRoleSet(model.RoleClient)}
)

func TestTouch_BasicTracking(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Touch(ada, "/admin")

	roster := tr.Roster(0)
	if len(roster) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(roster))
	}
	e := roster[0]
	if e.UserID != 1 || e.Name != "Ada" || e.Tier != "admin" {
		t.Errorf("entry = %+v", e)
	}
	if e.LastPath != "/admin" || e.RequestCount != 1 {
		t.Errorf("last_path = %q, request_count = %d", e.LastPath, e.RequestCount)
	}
}

func TestTouch_UpdatesExistingUser(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Touch(cal, "/client")
	first := clock.Now()
	clock.Advance(time.Minute)
	tr.Touch(cal, "/client/bookings")
	clock.Advance(time.Minute)
	tr.Touch(cal, "/client")

	e := tr.Roster(0)[0]
	if e.RequestCount != 3 || e.LastPath != "/client" {
		t.Errorf("entry = %+v", e)
	}
	if !e.FirstSeen.Equal(first) || !e.LastSeen.Equal(first.Add(2*time.Minute)) {
		t.Errorf("first_seen = %v, last_seen = %v", e.FirstSeen, e.LastSeen)
	}
}

func TestTouch_IgnoresAnonymous(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Touch(model.Identity{}, "/login")
	if n := len(tr.Roster(0)); n != 0 {
		t.Errorf("expected empty roster, got %d", n)
	}
}

func TestMarkIdle(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Touch(ada, "/admin")
	tr.Touch(cal, "/client")

	clock.Advance(time.Minute)
	tr.MarkIdle(ada.ID)
	tr.MarkIdle(999)

	if got := tr.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount = %d, want 1", got)
	}
	roster := tr.Roster(0)
	if len(roster) != 2 {
		t.Fatalf("roster = %+v", roster)
	}
	idleAt := clock.Now()
	for _, e := range roster {
		if e.UserID == ada.ID && (!e.Idle || !e.IdleSince.Equal(idleAt)) {
			t.Errorf("ada = %+v, want idle since %v", e, idleAt)
		}
	}

	// Marking again keeps the original idle time.
	clock.Advance(time.Minute)
	tr.MarkIdle(ada.ID)
	for _, e := range tr.Roster(0) {
		if e.UserID == ada.ID && !e.IdleSince.Equal(idleAt) {
			t.Errorf("idle_since moved to %v", e.IdleSince)
		}
	}
}

func TestMarkIdle_TouchRevives(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Touch(cal, "/client")
	tr.MarkIdle(cal.ID)

	tr.Touch(cal, "/client/bookings")

	e := tr.Roster(0)[0]
	if e.Idle || !e.IdleSince.IsZero() || e.RequestCount != 2 {
		t.Errorf("entry = %+v", e)
	}
	if tr.ActiveCount() != 1 {
		t.Error("revived user should count as active")
	}
}

func TestMarkIdle_EvictedBySweep(t *testing.T) {
	tr, clock := newTestTracker()
	cfg := (&ReaperConfig{EvictAfter: 10 * time.Minute}).withDefaults()
	tr.Touch(cal, "/client")
	tr.MarkIdle(cal.ID)

	clock.Advance(11 * time.Minute)
	tr.sweep(cfg)

	if n := len(tr.Roster(0)); n != 0 {
		t.Errorf("roster = %d entries, want evicted", n)
	}
}

func TestRoster_StaleThreshold(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Touch(ada, "/admin")
	clock.Advance(10 * time.Minute)
	tr.Touch(cal, "/client")

	if n := len(tr.Roster(5 * time.Minute)); n != 1 {
		t.Errorf("expected 1 fresh entry, got %d", n)
	}
	if n := len(tr.Roster(0)); n != 2 {
		t.Errorf("expected 2 entries with no threshold, got %d", n)
	}
}

func TestRoster_SortedByMostRecent(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Touch(ada, "/admin")
	clock.Advance(time.Second)
	tr.Touch(cal, "/client")
	clock.Advance(time.Second)
	tr.Touch(nia, "/client")

	roster := tr.Roster(0)
	if len(roster) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(roster))
	}
	if roster[0].UserID != nia.ID || roster[2].UserID != ada.ID {
		t.Errorf("order = %d, %d, %d", roster[0].UserID, roster[1].UserID, roster[2].UserID)
	}
}

func TestSweep_MarksIdleThenEvicts(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Touch(ada, "/admin")
	tr.Touch(cal, "/client")

	var idled []int64
	cfg := (&ReaperConfig{
		IdleAfter:  15 * time.Minute,
		EvictAfter: 30 * time.Minute,
		OnIdle:     func(id int64) { idled = append(idled, id) },
	}).withDefaults()

	clock.Advance(10 * time.Minute)
	tr.Touch(cal, "/client/bookings")
	clock.Advance(10 * time.Minute)
	tr.sweep(cfg)

	if len(idled) != 1 || idled[0] != ada.ID {
		t.Fatalf("idled = %v, want [1]", idled)
	}
	if got := tr.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount = %d, want 1", got)
	}

	// A second sweep must not report ada again.
	tr.sweep(cfg)
	if len(idled) != 1 {
		t.Errorf("idle reported twice: %v", idled)
	}

	clock.Advance(31 * time.Minute)
	tr.sweep(cfg)
	for _, e := range tr.Roster(0) {
		if e.UserID == ada.ID {
			t.Error("expected ada to be evicted")
		}
	}
}

func TestSweep_ActivityClearsIdle(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Touch(cal, "/client")

	clock.Advance(20 * time.Minute)
	tr.sweep((&ReaperConfig{}).withDefaults())
	if tr.ActiveCount() != 0 {
		t.Fatal("expected cal to be idle")
	}

	tr.Touch(cal, "/client")
	e := tr.Roster(0)[0]
	if e.Idle || !e.IdleSince.IsZero() || e.RequestCount != 2 {
		t.Errorf("entry after return = %+v", e)
	}
	if tr.ActiveCount() != 1 {
		t.Error("expected cal to be active again")
	}
}

func TestReaperConfig_Defaults(t *testing.T) {
	var nilCfg *ReaperConfig
	cfg := nilCfg.withDefaults()
	if cfg.IdleAfter != 15*time.Minute || cfg.EvictAfter != 30*time.Minute || cfg.SweepInterval != time.Minute {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestStartReaper_StopsCleanly(t *testing.T) {
	tr := New(nil)
	tr.StartReaper(&ReaperConfig{SweepInterval: 20 * time.Millisecond})

	time.Sleep(60 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		tr.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return within 2 seconds")
	}
	tr.Stop()
}
