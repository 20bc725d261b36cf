package unread

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/folio-pulse/app/auth"
	"github.com/lysyi3m/folio-pulse/app/content"
	"github.com/lysyi3m/folio-pulse/app/gateway"
)

const DefaultInterval = 30 * time.Second

type State string

const (
	StateIdle    State = "idle"
	StatePolling State = "polling"
	StateStopped State = "stopped"
)

type Status struct {
	State     State     `json:"state"`
	Count     int       `json:"count"`
	InFlight  bool      `json:"in_flight"`
	LastSync  time.Time `json:"last_sync,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// Synchronizer polls the message collection while the session is
// authenticated and writes the unread count into a Counter.
type Synchronizer struct {
	gw       gateway.Gateway
	counter  *Counter
	signal   *auth.Signal
	interval time.Duration

	mu         sync.Mutex
	state      State
	cancelPoll context.CancelFunc
	lastSync   time.Time
	lastErr    error
	wg         sync.WaitGroup

	// applyMu orders count writes against stop so a late cycle cannot
	// overwrite the reset.
	applyMu    sync.Mutex
	generation atomic.Uint64
	inFlight   atomic.Bool
}

func NewSynchronizer(gw gateway.Gateway, counter *Counter, signal *auth.Signal, interval time.Duration) *Synchronizer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Synchronizer{
		gw:       gw,
		counter:  counter,
		signal:   signal,
		interval: interval,
		state:    StateIdle,
	}
}

// Run follows the authentication signal until ctx is done. Polling starts
// when the session becomes ready and stops when it is no longer
// authenticated. Run stops polling before it returns.
func (s *Synchronizer) Run(ctx context.Context) {
	states, unsubscribe := s.signal.Subscribe()
	defer unsubscribe()
	defer s.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			s.apply(ctx, state)
		}
	}
}

func (s *Synchronizer) apply(ctx context.Context, state auth.State) {
	current := s.State()

	switch {
	case state.Ready() && current != StatePolling:
		s.start(ctx)
	case !state.Authenticated && current == StatePolling:
		s.stop()
	case !state.Authenticated:
		s.reset()
	}
}

// reset zeroes the counter without changing state. Pending cycles of an
// earlier generation are discarded.
func (s *Synchronizer) reset() {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	s.generation.Add(1)
	s.counter.ResetToZero()
}

func (s *Synchronizer) start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.generation.Add(1)
	pollCtx, cancel := context.WithCancel(ctx)
	s.cancelPoll = cancel
	s.state = StatePolling

	slog.Info("Unread synchronizer started", "interval", s.interval)

	s.wg.Add(1)
	go s.poll(pollCtx, gen)
}

func (s *Synchronizer) poll(ctx context.Context, gen uint64) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.cycle(ctx, gen)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx, gen)
		}
	}
}

func (s *Synchronizer) stop() {
	s.mu.Lock()
	wasPolling := s.state == StatePolling
	cancel := s.cancelPoll
	s.cancelPoll = nil
	s.state = StateStopped
	s.mu.Unlock()

	s.applyMu.Lock()
	s.generation.Add(1)
	s.counter.ResetToZero()
	s.applyMu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	if wasPolling {
		slog.Info("Unread synchronizer stopped")
	}
}

// SyncNow runs one cycle immediately. It reports false without fetching
// when the synchronizer is not polling or a cycle is already in flight.
func (s *Synchronizer) SyncNow(ctx context.Context) (bool, error) {
	if s.State() != StatePolling {
		return false, nil
	}
	return s.cycle(ctx, s.generation.Load())
}

func (s *Synchronizer) cycle(ctx context.Context, gen uint64) (bool, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		slog.Debug("Unread sync already in flight, skipping")
		return false, nil
	}
	defer s.inFlight.Store(false)

	records, err := s.gw.Fetch(ctx, content.KindMessage)

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if s.generation.Load() != gen {
		slog.Debug("Discarding unread sync result after stop")
		return true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		slog.Warn("Unread sync failed", "error", err)
		s.lastErr = err
		return true, fmt.Errorf("failed to sync unread count: %w", err)
	}

	unread := content.CountUnread(records)
	s.counter.Set(unread)
	s.lastSync = time.Now()
	s.lastErr = nil

	slog.Debug("Unread count synced", "unread", unread, "total", len(records))
	return true, nil
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Synchronizer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		State:    s.state,
		Count:    s.counter.Count(),
		InFlight: s.inFlight.Load(),
		LastSync: s.lastSync,
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}
