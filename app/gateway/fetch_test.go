package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/folio-pulse/app/content"
)

type stubGateway struct {
	mu       sync.Mutex
	records  map[content.Kind][]content.Record
	failures map[content.Kind]error
	delay    time.Duration
	active   atomic.Int32
	peak     atomic.Int32
	calls    map[content.Kind]int
}

func (s *stubGateway) Fetch(ctx context.Context, kind content.Kind) ([]content.Record, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[content.Kind]int)
	}
	s.calls[kind]++
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := s.failures[kind]; err != nil {
		return nil, err
	}
	return s.records[kind], nil
}

func TestFetchAllSettlesEveryKind(t *testing.T) {
	gw := &stubGateway{
		records: map[content.Kind][]content.Record{
			content.KindProject: {{"id": "p1"}},
			content.KindBlog:    {{"id": "b1"}, {"id": "b2"}},
		},
		failures: map[content.Kind]error{
			content.KindMessage: errors.New("messages offline"),
		},
	}

	kinds := []content.Kind{content.KindProject, content.KindBlog, content.KindMessage, content.KindSkill}
	batch := FetchAll(context.Background(), gw, kinds, 2)

	if len(batch.Records[content.KindBlog]) != 2 {
		t.Errorf("Expected 2 blog records, got %d", len(batch.Records[content.KindBlog]))
	}
	if records, ok := batch.Records[content.KindSkill]; !ok || records == nil {
		t.Error("Expected empty non-nil record list for kind with no data")
	}
	if _, ok := batch.Records[content.KindMessage]; ok {
		t.Error("Expected failed kind to be absent from records")
	}
	if batch.AllFailed() {
		t.Error("Expected partial failure, not all failed")
	}

	failed := batch.Failed()
	if len(failed) != 1 || failed[0] != content.KindMessage {
		t.Errorf("Expected only message to fail, got %v", failed)
	}
	if err := batch.Err(); err == nil || !strings.Contains(err.Error(), "message: messages offline") {
		t.Errorf("Expected joined error naming the kind, got %v", err)
	}
}

func TestFetchAllReportsTotalFailure(t *testing.T) {
	boom := errors.New("unreachable")
	gw := &stubGateway{failures: map[content.Kind]error{
		content.KindProject: boom,
		content.KindBlog:    boom,
	}}

	batch := FetchAll(context.Background(), gw, []content.Kind{content.KindProject, content.KindBlog}, 0)
	if !batch.AllFailed() {
		t.Error("Expected AllFailed when every kind fails")
	}
	if !errors.Is(batch.Err(), boom) {
		t.Errorf("Expected joined error to wrap cause, got %v", batch.Err())
	}
}

func TestFetchAllRespectsConcurrencyLimit(t *testing.T) {
	gw := &stubGateway{delay: 20 * time.Millisecond}

	FetchAll(context.Background(), gw, content.AllKinds, 3)

	if peak := gw.peak.Load(); peak > 3 {
		t.Errorf("Expected at most 3 concurrent fetches, got %d", peak)
	}
	for _, kind := range content.AllKinds {
		if gw.calls[kind] != 1 {
			t.Errorf("Expected exactly one fetch for %s, got %d", kind, gw.calls[kind])
		}
	}
}

func TestFetchAllEmptyKinds(t *testing.T) {
	batch := FetchAll(context.Background(), &stubGateway{}, nil, 4)
	if batch.AllFailed() {
		t.Error("Expected empty pass not to count as failed")
	}
	if batch.Err() != nil {
		t.Errorf("Expected no error, got %v", batch.Err())
	}
}

func TestFetchAllCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := &stubGateway{delay: time.Second}
	batch := FetchAll(ctx, gw, []content.Kind{content.KindProject}, 1)
	if !errors.Is(batch.Errors[content.KindProject], context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", batch.Errors[content.KindProject])
	}
}
