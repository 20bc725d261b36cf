package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/folio-pulse/app/content"
)

// Batch is the settled outcome of one parallel fetch pass. A kind appears
// in exactly one of Records or Errors.
type Batch struct {
	Kinds   []content.Kind
	Records map[content.Kind][]content.Record
	Errors  map[content.Kind]error
}

// Err joins the per-kind failures in the order the kinds were requested.
func (b Batch) Err() error {
	if len(b.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(b.Errors))
	for _, kind := range b.Kinds {
		if err, ok := b.Errors[kind]; ok {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}

// AllFailed reports whether no requested kind could be fetched.
func (b Batch) AllFailed() bool {
	return len(b.Kinds) > 0 && len(b.Errors) == len(b.Kinds)
}

// Failed lists the kinds that failed, in request order.
func (b Batch) Failed() []content.Kind {
	failed := make([]content.Kind, 0, len(b.Errors))
	for _, kind := range b.Kinds {
		if _, ok := b.Errors[kind]; ok {
			failed = append(failed, kind)
		}
	}
	return failed
}

// FetchAll fetches every kind concurrently, at most limit at a time
// (limit <= 0 means unbounded). One failing kind never cancels the others.
func FetchAll(ctx context.Context, gw Gateway, kinds []content.Kind, limit int) Batch {
	batch := Batch{
		Kinds:   kinds,
		Records: make(map[content.Kind][]content.Record, len(kinds)),
		Errors:  make(map[content.Kind]error),
	}

	var mu sync.Mutex
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, kind := range kinds {
		g.Go(func() error {
			records, err := gw.Fetch(ctx, kind)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				slog.Warn("Content fetch failed", "kind", kind, "error", err)
				batch.Errors[kind] = err
				return nil
			}
			if records == nil {
				records = []content.Record{}
			}
			batch.Records[kind] = records
			return nil
		})
	}

	_ = g.Wait()
	return batch
}
