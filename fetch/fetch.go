// Package fetch walks offset-paginated remote result sets with bounded
// retries. Historical transaction backfill and full reward retrieval use it
// with nothing varied but the query function and page size.
package fetch

import (
	"context"
	"fmt"
	"time"

	"meshwallet/logx"
	"meshwallet/monitoring"
)

// QueryFunc issues one page query at the given offset and reports the page
// items plus the total size of the result set.
type QueryFunc[T any] func(ctx context.Context, offset uint64) (items []T, totalResults uint64, err error)

// PageFunc receives each successfully fetched page, in offset order.
type PageFunc[T any] func(items []T)

// Options bounds one pagination walk.
type Options struct {
	Name        string        // query name for logs and metrics
	StartOffset uint64
	PageSize    uint64
	MaxRetries  int           // attempts per page before giving up
	RetryDelay  time.Duration // wait between attempts at the same offset
	Kind        monitoring.QueryKind
}

// All fetches every page of a result set. A page that keeps failing after
// MaxRetries attempts stops the walk with an error; pages already handed to
// onPage stay delivered. Completed offsets are never revisited.
func All[T any](ctx context.Context, query QueryFunc[T], onPage PageFunc[T], opts Options) error {
	if opts.PageSize == 0 {
		return fmt.Errorf("page size cannot be zero")
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}

	offset := opts.StartOffset
	for {
		items, total, err := queryWithRetries(ctx, query, offset, opts)
		if err != nil {
			return fmt.Errorf("pagination stopped at offset %d: %w", offset, err)
		}

		onPage(items)
		monitoring.IncreaseBackfillPageCount()

		if offset+opts.PageSize >= total {
			return nil
		}
		offset += opts.PageSize
	}
}

func queryWithRetries[T any](ctx context.Context, query QueryFunc[T], offset uint64, opts Options) ([]T, uint64, error) {
	var lastErr error
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		items, total, err := query(ctx, offset)
		if err == nil {
			return items, total, nil
		}
		lastErr = err

		logx.Warn("FETCH", fmt.Sprintf("%s query failed at offset %d (attempt %d/%d): %v", opts.Name, offset, attempt, opts.MaxRetries, err))
		monitoring.IncreaseQueryRetryCount(opts.Kind)
		if attempt == opts.MaxRetries {
			break
		}

		if err := wait(ctx, opts.RetryDelay); err != nil {
			return nil, 0, err
		}
	}
	return nil, 0, lastErr
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
