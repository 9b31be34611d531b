package scheduler

import (
	"context"
	"sync"
	"time"
)

const (
	// pollInterval is how often each device loop evaluates its timer.
	pollInterval = 5 * time.Second

	// fireWindow is how long a one-shot trigger time remains matchable.
	// Wide enough that a poll never lands between windows, with fired
	// guards preventing repeats inside one.
	fireWindow = time.Minute
)

// Publisher sends control commands toward the fleet. The boolean reports
// whether the command reached the broker.
type Publisher interface {
	ControlDevice(deviceID string, on bool) bool
}

// Repository persists timer entries.
type Repository interface {
	Save(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, deviceID string) error
	Get(ctx context.Context, deviceID string) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
}

// Logger is the minimal logging interface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// Scheduler owns the timer lifecycle: persistence, per-device poll loops,
// and firing control commands at the right moments.
type Scheduler struct {
	repo      Repository
	publisher Publisher
	logger    Logger
	loc       *time.Location
	known     map[string]struct{}

	mu    sync.Mutex
	loops map[string]context.CancelFunc
	wg    sync.WaitGroup

	// baseCtx parents every device loop; set by Restore/first use.
	baseCtx context.Context

	// now is swappable for tests.
	now func() time.Time
}

// New creates a scheduler for the known device set. Times are evaluated in
// loc, the site timezone.
func New(repo Repository, publisher Publisher, deviceIDs []string, loc *time.Location, logger Logger) *Scheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	if loc == nil {
		loc = time.UTC
	}
	known := make(map[string]struct{}, len(deviceIDs))
	for _, id := range deviceIDs {
		known[id] = struct{}{}
	}
	return &Scheduler{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		loc:       loc,
		known:     known,
		loops:     make(map[string]context.CancelFunc),
		baseCtx:   context.Background(),
		now:       time.Now,
	}
}

// Restore loads persisted timers and resumes their loops. One-shot timers
// whose window fully passed while the core was down are cleared without
// firing. Call once at startup with the process lifetime context.
func (s *Scheduler) Restore(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	entries, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	now := s.now().In(s.loc)
	restored, cleared, disabled := 0, 0, 0
	for _, entry := range entries {
		// Disabled entries stay persisted but get no loop; an operator
		// flipped them off deliberately.
		if !entry.Enabled {
			disabled++
			continue
		}
		if entry.Expired(now) {
			if err := s.repo.Delete(ctx, entry.Device); err != nil {
				s.logger.Error("clearing expired timer failed",
					"device", entry.Device, "error", err)
				continue
			}
			cleared++
			s.logger.Info("expired timer cleared without firing",
				"device", entry.Device, "off_at", entry.OffAt)
			continue
		}
		s.startLoop(entry)
		restored++
	}

	s.logger.Info("timers restored",
		"active", restored, "expired", cleared, "disabled", disabled)
	return nil
}

// SetTimer validates, persists, and activates a timer, replacing any
// existing timer for the device.
func (s *Scheduler) SetTimer(ctx context.Context, entry Entry) error {
	if _, ok := s.known[entry.Device]; !ok {
		return ErrUnknownDevice
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	if err := s.repo.Save(ctx, entry); err != nil {
		return err
	}

	s.stopLoop(entry.Device)
	if entry.Enabled {
		s.startLoop(entry)
	}

	s.logger.Info("timer set",
		"device", entry.Device,
		"on_at", entry.OnAt,
		"off_at", entry.OffAt,
		"daily", entry.Daily)
	return nil
}

// ClearTimer removes a device's timer and stops its loop.
func (s *Scheduler) ClearTimer(ctx context.Context, deviceID string) error {
	if _, ok := s.known[deviceID]; !ok {
		return ErrUnknownDevice
	}
	if err := s.repo.Delete(ctx, deviceID); err != nil {
		return err
	}
	s.stopLoop(deviceID)
	s.logger.Info("timer cleared", "device", deviceID)
	return nil
}

// GetTimer returns a device's timer.
func (s *Scheduler) GetTimer(ctx context.Context, deviceID string) (Entry, error) {
	if _, ok := s.known[deviceID]; !ok {
		return Entry{}, ErrUnknownDevice
	}
	return s.repo.Get(ctx, deviceID)
}

// ListTimers returns all stored timers.
func (s *Scheduler) ListTimers(ctx context.Context) ([]Entry, error) {
	return s.repo.List(ctx)
}

// Stop cancels every device loop and waits for them to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for device, cancel := range s.loops {
		cancel()
		delete(s.loops, device)
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) startLoop(entry Entry) {
	s.mu.Lock()
	if cancel, ok := s.loops[entry.Device]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.loops[entry.Device] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLoop(ctx, entry)
	}()
}

func (s *Scheduler) stopLoop(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.loops[deviceID]; ok {
		cancel()
		delete(s.loops, deviceID)
	}
}

// loopState carries one loop's fired guards: the match windows span
// multiple polls, each edge must fire exactly once.
type loopState struct {
	entry         Entry
	onFired       bool
	offFired      bool
	lastOnMinute  time.Time
	lastOffMinute time.Time
}

// runLoop polls one device's timer until cancelled or, for one-shot
// timers, until the off command has fired and the timer is removed.
func (s *Scheduler) runLoop(ctx context.Context, entry Entry) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	state := &loopState{entry: entry}

	s.logger.Debug("timer loop started", "device", entry.Device, "daily", entry.Daily)
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("timer loop stopped", "device", entry.Device)
			return
		case <-ticker.C:
		}

		if done := s.evaluateTick(state, s.now().In(s.loc)); done {
			// One-shot complete: remove the timer and end the loop.
			if err := s.repo.Delete(context.Background(), entry.Device); err != nil {
				s.logger.Error("removing completed timer failed",
					"device", entry.Device, "error", err)
			}
			s.stopLoop(entry.Device)
			return
		}
	}
}

// evaluateTick runs one poll of a timer. Returns true when a one-shot timer
// has completed its off edge and should be removed.
func (s *Scheduler) evaluateTick(st *loopState, now time.Time) bool {
	if st.entry.Daily {
		minute := now.Truncate(time.Minute)
		if matchesWallClock(now, st.entry.OnAt.In(s.loc)) && !minute.Equal(st.lastOnMinute) {
			st.lastOnMinute = minute
			s.fire(st.entry.Device, true)
		}
		if matchesWallClock(now, st.entry.OffAt.In(s.loc)) && !minute.Equal(st.lastOffMinute) {
			st.lastOffMinute = minute
			s.fire(st.entry.Device, false)
		}
		return false
	}

	if !st.onFired && inWindow(now, st.entry.OnAt.In(s.loc)) {
		st.onFired = true
		s.fire(st.entry.Device, true)
	}
	if !st.offFired && inWindow(now, st.entry.OffAt.In(s.loc)) {
		st.offFired = true
		s.fire(st.entry.Device, false)
		return true
	}
	return false
}

// fire publishes one scheduled control command. A failed publish is logged
// and not retried; the device's real state converges via status echoes.
func (s *Scheduler) fire(deviceID string, on bool) {
	if s.publisher.ControlDevice(deviceID, on) {
		s.logger.Info("timer fired", "device", deviceID, "on", on)
		return
	}
	s.logger.Warn("timer fire not delivered", "device", deviceID, "on", on)
}

// matchesWallClock reports whether now is inside the minute of the target
// wall-clock time.
func matchesWallClock(now, target time.Time) bool {
	return now.Hour() == target.Hour() && now.Minute() == target.Minute()
}

// inWindow reports whether now falls inside [target, target+fireWindow).
func inWindow(now, target time.Time) bool {
	return !now.Before(target) && now.Before(target.Add(fireWindow))
}
