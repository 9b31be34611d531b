package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeRepo struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func newFakeRepo(entries ...Entry) *fakeRepo {
	r := &fakeRepo{entries: make(map[string]Entry)}
	for _, e := range entries {
		r.entries[e.Device] = e
	}
	return r
}

func (r *fakeRepo) Save(_ context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Device] = entry
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, deviceID)
	return nil
}

func (r *fakeRepo) Get(_ context.Context, deviceID string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[deviceID]
	if !ok {
		return Entry{}, ErrTimerNotFound
	}
	return entry, nil
}

func (r *fakeRepo) List(_ context.Context) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

func (r *fakeRepo) has(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[deviceID]
	return ok
}

type fakePublisher struct {
	mu    sync.Mutex
	fired []string
}

func (p *fakePublisher) ControlDevice(deviceID string, on bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := "off"
	if on {
		state = "on"
	}
	p.fired = append(p.fired, deviceID+":"+state)
	return true
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.fired)
}

var testDevices = []string{"light", "roof", "pump", "fan"}

func newTestScheduler(repo Repository, pub Publisher) *Scheduler {
	return New(repo, pub, testDevices, time.UTC, nil)
}

func TestSetTimerRejectsUnknownDevice(t *testing.T) {
	s := newTestScheduler(newFakeRepo(), &fakePublisher{})
	defer s.Stop()

	err := s.SetTimer(context.Background(), Entry{
		Device: "sprinkler",
		OnAt:   time.Now(),
		OffAt:  time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("expected ErrUnknownDevice, got %v", err)
	}
}

func TestSetTimerRejectsInvertedWindow(t *testing.T) {
	s := newTestScheduler(newFakeRepo(), &fakePublisher{})
	defer s.Stop()

	now := time.Now()
	err := s.SetTimer(context.Background(), Entry{
		Device: "pump",
		OnAt:   now,
		OffAt:  now.Add(-time.Hour),
	})
	if !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestSetTimerReplacesExisting(t *testing.T) {
	repo := newFakeRepo()
	s := newTestScheduler(repo, &fakePublisher{})
	defer s.Stop()

	now := time.Now()
	first := Entry{Device: "pump", OnAt: now.Add(time.Hour), OffAt: now.Add(2 * time.Hour), Enabled: true}
	second := Entry{Device: "pump", OnAt: now.Add(3 * time.Hour), OffAt: now.Add(4 * time.Hour), Enabled: true}

	if err := s.SetTimer(context.Background(), first); err != nil {
		t.Fatalf("first SetTimer: %v", err)
	}
	if err := s.SetTimer(context.Background(), second); err != nil {
		t.Fatalf("second SetTimer: %v", err)
	}

	got, err := s.GetTimer(context.Background(), "pump")
	if err != nil {
		t.Fatalf("GetTimer: %v", err)
	}
	if !got.OnAt.Equal(second.OnAt) {
		t.Errorf("timer not replaced: %+v", got)
	}
}

func TestClearTimer(t *testing.T) {
	repo := newFakeRepo()
	s := newTestScheduler(repo, &fakePublisher{})
	defer s.Stop()

	now := time.Now()
	entry := Entry{Device: "fan", OnAt: now.Add(time.Hour), OffAt: now.Add(2 * time.Hour), Enabled: true}
	if err := s.SetTimer(context.Background(), entry); err != nil {
		t.Fatalf("SetTimer: %v", err)
	}

	if err := s.ClearTimer(context.Background(), "fan"); err != nil {
		t.Fatalf("ClearTimer: %v", err)
	}
	if _, err := s.GetTimer(context.Background(), "fan"); !errors.Is(err, ErrTimerNotFound) {
		t.Errorf("expected ErrTimerNotFound after clear, got %v", err)
	}
}

func TestRestoreClearsExpiredOneShots(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	expired := Entry{
		Device:  "pump",
		OnAt:    now.Add(-2 * time.Hour),
		OffAt:   now.Add(-time.Hour),
		Enabled: true,
	}
	pending := Entry{
		Device:  "fan",
		OnAt:    now.Add(time.Hour),
		OffAt:   now.Add(2 * time.Hour),
		Enabled: true,
	}
	daily := Entry{
		Device:  "light",
		OnAt:    now.Add(-24 * time.Hour),
		OffAt:   now.Add(-23 * time.Hour),
		Daily:   true,
		Enabled: true,
	}

	repo := newFakeRepo(expired, pending, daily)
	pub := &fakePublisher{}
	s := newTestScheduler(repo, pub)
	s.now = func() time.Time { return now }
	defer s.Stop()

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if repo.has("pump") {
		t.Error("expired one-shot survived restore")
	}
	if !repo.has("fan") {
		t.Error("pending one-shot removed by restore")
	}
	if !repo.has("light") {
		t.Error("daily timer removed by restore")
	}
	if pub.count() != 0 {
		t.Errorf("restore fired %d commands, want 0", pub.count())
	}
}

func TestRestoreSkipsDisabledEntries(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	// Window currently active, but the entry was switched off: restore
	// must keep the row and must not resume firing.
	disabled := Entry{
		Device:  "pump",
		OnAt:    now.Add(-time.Minute),
		OffAt:   now.Add(time.Hour),
		Enabled: false,
	}
	active := Entry{
		Device:  "fan",
		OnAt:    now.Add(time.Hour),
		OffAt:   now.Add(2 * time.Hour),
		Enabled: true,
	}

	repo := newFakeRepo(disabled, active)
	pub := &fakePublisher{}
	s := newTestScheduler(repo, pub)
	s.now = func() time.Time { return now }
	defer s.Stop()

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	s.mu.Lock()
	_, disabledLoop := s.loops["pump"]
	_, activeLoop := s.loops["fan"]
	s.mu.Unlock()

	if disabledLoop {
		t.Error("restore started a loop for a disabled entry")
	}
	if !activeLoop {
		t.Error("restore did not start a loop for an enabled entry")
	}
	if !repo.has("pump") {
		t.Error("disabled entry removed by restore")
	}
	if pub.count() != 0 {
		t.Errorf("disabled entry fired %d commands after restore", pub.count())
	}
}

func TestOneShotFiresExactlyOnce(t *testing.T) {
	// setTimer(pump, on 08:00, off 08:05): polling every 5 seconds must
	// produce one on near 08:00, one off near 08:05, and nothing after.
	repo := newFakeRepo()
	pub := &fakePublisher{}
	s := newTestScheduler(repo, pub)
	defer s.Stop()

	onAt := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	st := &loopState{entry: Entry{
		Device:  "pump",
		OnAt:    onAt,
		OffAt:   onAt.Add(5 * time.Minute),
		Enabled: true,
	}}

	var completedAt time.Time
	for now := onAt.Add(-time.Minute); now.Before(onAt.Add(10 * time.Minute)); now = now.Add(5 * time.Second) {
		if s.evaluateTick(st, now) {
			completedAt = now
			break
		}
	}

	pub.mu.Lock()
	fired := append([]string(nil), pub.fired...)
	pub.mu.Unlock()

	want := []string{"pump:on", "pump:off"}
	if len(fired) != len(want) || fired[0] != want[0] || fired[1] != want[1] {
		t.Errorf("fired = %v, want %v", fired, want)
	}
	if completedAt.IsZero() || completedAt.Before(onAt.Add(5*time.Minute)) {
		t.Errorf("completed at %v", completedAt)
	}
}

func TestDailyFiresOncePerMinuteMatch(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	s := newTestScheduler(repo, pub)
	defer s.Stop()

	onAt := time.Date(2026, 8, 30, 6, 30, 0, 0, time.UTC)
	st := &loopState{entry: Entry{
		Device:  "light",
		OnAt:    onAt,
		OffAt:   onAt.Add(12 * time.Hour),
		Daily:   true,
		Enabled: true,
	}}

	// Two simulated days of 5-second polls around the on edge.
	for day := 0; day < 2; day++ {
		base := onAt.AddDate(0, 0, day)
		for now := base.Add(-time.Minute); now.Before(base.Add(2 * time.Minute)); now = now.Add(5 * time.Second) {
			if s.evaluateTick(st, now) {
				t.Fatal("daily timer reported completion")
			}
		}
	}

	if got := pub.count(); got != 2 {
		t.Errorf("fired %d times across 2 days, want 2", got)
	}
}

func TestEntryExpired(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{
			"one-shot past window",
			Entry{OffAt: now.Add(-2 * time.Minute)},
			true,
		},
		{
			"one-shot inside window",
			Entry{OffAt: now.Add(-30 * time.Second)},
			false,
		},
		{
			"one-shot in future",
			Entry{OffAt: now.Add(time.Hour)},
			false,
		},
		{
			"daily never expires",
			Entry{Daily: true, OffAt: now.Add(-24 * time.Hour)},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Expired(now); got != tt.want {
				t.Errorf("Expired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInWindow(t *testing.T) {
	target := time.Date(2026, 8, 30, 6, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before", target.Add(-time.Second), false},
		{"at edge", target, true},
		{"inside", target.Add(30 * time.Second), true},
		{"at close", target.Add(time.Minute), false},
		{"after", target.Add(2 * time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inWindow(tt.now, target); got != tt.want {
				t.Errorf("inWindow = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesWallClock(t *testing.T) {
	target := time.Date(2026, 8, 30, 6, 30, 0, 0, time.UTC)

	if !matchesWallClock(time.Date(2026, 9, 1, 6, 30, 45, 0, time.UTC), target) {
		t.Error("same wall-clock minute on a later day should match")
	}
	if matchesWallClock(time.Date(2026, 8, 30, 6, 31, 0, 0, time.UTC), target) {
		t.Error("next minute should not match")
	}
}
