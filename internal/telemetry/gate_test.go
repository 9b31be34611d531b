package telemetry

import (
	"context"
	"testing"
	"time"
)

type fakeStore struct {
	saved []Reading
	err   error

	// failures fails that many saves before recovering.
	failures int
}

func (f *fakeStore) SaveReading(_ context.Context, r Reading) error {
	if f.err != nil {
		return f.err
	}
	if f.failures > 0 {
		f.failures--
		return context.DeadlineExceeded
	}
	f.saved = append(f.saved, r)
	return nil
}

type fakeBroadcaster struct {
	pushed []Reading
}

func (f *fakeBroadcaster) BroadcastReading(r Reading) {
	f.pushed = append(f.pushed, r)
}

type fakeRainfall struct {
	today   float64
	monthly float64
	calls   int
}

func (f *fakeRainfall) TodayRainfall(context.Context) (float64, error) {
	f.calls++
	return f.today, nil
}

func (f *fakeRainfall) LastMonthRainfall(context.Context) (float64, error) {
	return f.monthly, nil
}

func newTestGate(store *fakeStore, bcast *fakeBroadcaster, opts ...GateOption) (*Gate, *time.Time) {
	gate := NewGate(store, bcast, "farm-01", 300*time.Second, opts...)
	now := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }
	return gate, &now
}

func TestGateBroadcastsEveryReading(t *testing.T) {
	store := &fakeStore{}
	bcast := &fakeBroadcaster{}
	gate, now := newTestGate(store, bcast)

	for i := 0; i < 5; i++ {
		gate.Ingest(context.Background(), Reading{Temperature: float64(20 + i)})
		*now = now.Add(10 * time.Second)
	}

	if len(bcast.pushed) != 5 {
		t.Errorf("expected 5 broadcasts, got %d", len(bcast.pushed))
	}
}

func TestGatePersistsAtCadence(t *testing.T) {
	store := &fakeStore{}
	bcast := &fakeBroadcaster{}
	gate, now := newTestGate(store, bcast)

	// First reading always persists; the next within the interval does not.
	gate.Ingest(context.Background(), Reading{Temperature: 20})
	*now = now.Add(10 * time.Second)
	gate.Ingest(context.Background(), Reading{Temperature: 21})

	if len(store.saved) != 1 {
		t.Fatalf("expected 1 persisted reading, got %d", len(store.saved))
	}

	// Once the interval elapses, the next reading persists again.
	*now = now.Add(300 * time.Second)
	gate.Ingest(context.Background(), Reading{Temperature: 22})

	if len(store.saved) != 2 {
		t.Errorf("expected 2 persisted readings, got %d", len(store.saved))
	}
	if store.saved[1].Temperature != 22 {
		t.Errorf("persisted wrong reading: %+v", store.saved[1])
	}
}

func TestGateBroadcastsWhenPersistFails(t *testing.T) {
	store := &fakeStore{err: context.DeadlineExceeded}
	bcast := &fakeBroadcaster{}
	gate, _ := newTestGate(store, bcast)

	gate.Ingest(context.Background(), Reading{Temperature: 20})

	if len(bcast.pushed) != 1 {
		t.Error("persist failure must not suppress the broadcast")
	}
}

func TestGateRetriesAfterPersistFailure(t *testing.T) {
	store := &fakeStore{failures: 1}
	bcast := &fakeBroadcaster{}
	gate, now := newTestGate(store, bcast)

	// First durable write fails; the cadence must not count it, so the
	// next reading inside the interval persists instead of waiting.
	gate.Ingest(context.Background(), Reading{Temperature: 20})
	if len(store.saved) != 0 {
		t.Fatalf("failed save recorded %d readings", len(store.saved))
	}

	*now = now.Add(10 * time.Second)
	gate.Ingest(context.Background(), Reading{Temperature: 21})

	if len(store.saved) != 1 {
		t.Fatalf("expected retry to persist, got %d saves", len(store.saved))
	}
	if store.saved[0].Temperature != 21 {
		t.Errorf("persisted wrong reading: %+v", store.saved[0])
	}
}

func TestGateEnrichesWithRainfall(t *testing.T) {
	store := &fakeStore{}
	bcast := &fakeBroadcaster{}
	rain := &fakeRainfall{today: 3.5, monthly: 120}
	gate, now := newTestGate(store, bcast, WithRainfall(rain))

	gate.Ingest(context.Background(), Reading{Temperature: 20})

	got := bcast.pushed[0]
	if got.Rainfall != 3.5 || got.MonthlyRainfall != 120 {
		t.Errorf("reading not enriched: %+v", got)
	}

	// Within the cache TTL the upstream is not consulted again.
	*now = now.Add(time.Minute)
	gate.Ingest(context.Background(), Reading{Temperature: 21})
	if rain.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", rain.calls)
	}
}

func TestGateLatest(t *testing.T) {
	store := &fakeStore{}
	bcast := &fakeBroadcaster{}
	gate, now := newTestGate(store, bcast)

	if _, ok := gate.Latest(); ok {
		t.Error("empty gate reported a latest reading")
	}

	gate.Ingest(context.Background(), Reading{Temperature: 20})
	*now = now.Add(time.Second)
	gate.Ingest(context.Background(), Reading{Temperature: 25})

	latest, ok := gate.Latest()
	if !ok || latest.Temperature != 25 {
		t.Errorf("latest = %+v ok=%v, want temperature 25", latest, ok)
	}
}

func TestGatePrimeDoesNotOverride(t *testing.T) {
	store := &fakeStore{}
	bcast := &fakeBroadcaster{}
	gate, _ := newTestGate(store, bcast)

	gate.Ingest(context.Background(), Reading{Temperature: 25})
	gate.Prime(Reading{Temperature: 10})

	latest, _ := gate.Latest()
	if latest.Temperature != 25 {
		t.Errorf("prime overrode a live reading: %+v", latest)
	}
}

func TestShouldPersist(t *testing.T) {
	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	interval := 300 * time.Second

	tests := []struct {
		name string
		now  time.Time
		last time.Time
		want bool
	}{
		{"first reading", base, time.Time{}, true},
		{"inside interval", base.Add(299 * time.Second), base, false},
		{"at interval", base.Add(300 * time.Second), base, true},
		{"past interval", base.Add(301 * time.Second), base, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldPersist(tt.now, tt.last, interval); got != tt.want {
				t.Errorf("shouldPersist = %v, want %v", got, tt.want)
			}
		})
	}
}
