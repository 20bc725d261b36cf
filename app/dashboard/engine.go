// Package dashboard runs refresh passes that turn content collections into a Report.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/folio-pulse/app/analytics"
	"github.com/lysyi3m/folio-pulse/app/cfg"
	"github.com/lysyi3m/folio-pulse/app/content"
	"github.com/lysyi3m/folio-pulse/app/gateway"
)

var (
	ErrAllSourcesFailed = errors.New("all content sources failed")
	ErrSuperseded       = errors.New("refresh superseded by a newer request")
)

type Report struct {
	Sequence    uint64                               `json:"sequence"`
	Range       analytics.Range                      `json:"range"`
	GeneratedAt time.Time                            `json:"generated_at"`
	Stats       analytics.StatsSnapshot              `json:"stats"`
	Timeline    []analytics.TimeBucket               `json:"timeline"`
	Monthly     []analytics.TimeBucket               `json:"monthly"`
	Messages    []analytics.DayCount                 `json:"messages_by_day"`
	Feeds       map[string][]analytics.ActivityEvent `json:"feeds"`
	TopContent  []analytics.TopItem                  `json:"top_content"`
	Performance []analytics.PerformanceRow           `json:"performance"`
	Failures    map[content.Kind]string              `json:"failures,omitempty"`
}

type Option func(*Engine)

func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine owns the latest Report. Overlapping refreshes resolve to the most
// recently requested one; earlier passes are cancelled and discarded.
type Engine struct {
	gw          gateway.Gateway
	settings    *cfg.Dashboard
	concurrency int
	now         func() time.Time

	mu         sync.Mutex
	seq        uint64
	cancelPrev context.CancelFunc
	current    *Report
	lastErr    error
}

func New(gw gateway.Gateway, settings *cfg.Dashboard, opts ...Option) *Engine {
	if settings == nil {
		settings = cfg.DefaultDashboard()
	}
	e := &Engine{
		gw:       gw,
		settings: settings,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Refresh fetches every kind and rebuilds the report for r (the configured
// default when empty). Kinds that fail are listed in Report.Failures. When
// every kind fails the previous report is returned with ErrAllSourcesFailed.
func (e *Engine) Refresh(ctx context.Context, r analytics.Range) (*Report, error) {
	if r == "" {
		r = e.settings.DefaultRange
	}
	if r.Days() == 0 {
		return nil, fmt.Errorf("unsupported range %q", r)
	}

	e.mu.Lock()
	e.seq++
	seq := e.seq
	if e.cancelPrev != nil {
		e.cancelPrev()
	}
	passCtx, cancel := context.WithCancel(ctx)
	e.cancelPrev = cancel
	e.mu.Unlock()
	defer cancel()

	start := time.Now()
	batch := gateway.FetchAll(passCtx, e.gw, content.AllKinds, e.concurrency)

	e.mu.Lock()
	defer e.mu.Unlock()

	if seq != e.seq {
		slog.Debug("Discarding superseded refresh", "sequence", seq, "latest", e.seq)
		return nil, ErrSuperseded
	}
	e.cancelPrev = nil

	if batch.AllFailed() {
		err := fmt.Errorf("%w: %w", ErrAllSourcesFailed, batch.Err())
		e.lastErr = err
		slog.Error("Dashboard refresh failed", "sequence", seq, "range", r, "error", err)
		return e.current, err
	}

	report := e.build(batch, r, seq)
	e.current = report
	e.lastErr = nil

	slog.Info("Dashboard refreshed",
		"sequence", seq,
		"range", r,
		"duration", time.Since(start),
		"total", report.Stats.Metrics["total"],
		"failed", len(report.Failures))

	return report, nil
}

// Current returns the latest successful report and the error of the most
// recent pass, if it failed. The report is nil before the first success.
func (e *Engine) Current() (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, e.lastErr
}

func (e *Engine) Settings() *cfg.Dashboard {
	return e.settings
}

func (e *Engine) build(batch gateway.Batch, r analytics.Range, seq uint64) *Report {
	now := e.now()
	items := content.Normalize(batch.Records)
	byKind := content.GroupByKind(items)
	kinds := e.settings.TimelineKinds

	report := &Report{
		Sequence:    seq,
		Range:       r,
		GeneratedAt: now,
		Stats:       analytics.ComputeStats(byKind),
		Timeline:    analytics.Bucketize(items, r, now, kinds...),
		Monthly:     analytics.BucketizeMonths(items, e.settings.Months, now, kinds...),
		Messages:    analytics.MessagesByDay(byKind[content.KindMessage], now.Location(), analytics.MessageStatsDays),
		Feeds:       make(map[string][]analytics.ActivityEvent, len(e.settings.Feeds)),
		TopContent:  analytics.TopContent(byKind, e.settings.TopPerKind, e.settings.TopLimit),
		Performance: analytics.Performance(byKind, r, now),
	}

	for view, policy := range e.settings.Feeds {
		report.Feeds[view] = policy.Build(byKind)
	}

	if failed := batch.Failed(); len(failed) > 0 {
		report.Failures = make(map[content.Kind]string, len(failed))
		for _, kind := range failed {
			report.Failures[kind] = batch.Errors[kind].Error()
		}
	}

	return report
}
