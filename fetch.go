package pagenav

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// baseQuery builds the query for cfg without a cursor.
func (e *Engine[T]) baseQuery(cfg Config) *Query {
	q := NewQuery(cfg.Source).
		WithWhere(cfg.Where...).
		WithSort(cfg.OrderBy...).
		WithLimit(cfg.Limit)

	if e.opts.lookahead {
		q = q.WithLookahead()
	}

	return q
}

// find runs q and records the round trip.
func (e *Engine[T]) find(ctx context.Context, q *Query, kind string, page int) ([]T, error) {
	sql, args := q.ToSQL()
	e.opts.logger.WithFields(logrus.Fields{
		"source": q.GetSource().String(),
		"page":   page,
		"limit":  q.GetLimit(),
		"kind":   kind,
		"sql":    sql,
		"args":   args,
	}).Debug("fetching page")

	start := time.Now()
	items, err := e.exec.Find(ctx, q)
	e.opts.metrics.observe(kind, start, err)

	return items, err
}

// pageCursor returns the cursor right after items, the page-th page of cfg.
// The result is a nil interface when items is empty.
func (e *Engine[T]) pageCursor(cfg Config, page int, items []T) (Cursor, error) {
	if len(items) == 0 {
		return nil, nil
	}

	if e.opts.pseudo {
		return NewPseudoCursor((page-1)*cfg.Limit + len(items)), nil
	}

	cursor, err := NextPageCursor(cfg.OrderBy, items, e.getters)
	if err != nil {
		return nil, fmt.Errorf("cannot build cursor of page %d: %w", page, err)
	}

	return cursor, nil
}

// fetchAfter fetches the page-th page of cfg starting after cursor.
func (e *Engine[T]) fetchAfter(ctx context.Context, cfg Config, page int, cursor Cursor, kind string) (PageResult[T], error) {
	q := e.baseQuery(cfg).WithCursor(cursor)

	items, err := e.find(ctx, q, kind, page)
	if err != nil {
		return PageResult[T]{}, err
	}

	result := PageResult[T]{
		HasMore: !IsLastPage(q, items),
		Items:   TrimResultSet(q, items),
	}

	result.LastCursor, err = e.pageCursor(cfg, page, result.Items)
	if err != nil {
		return PageResult[T]{}, err
	}

	return result, nil
}

// fetchPageData fetches target without committing it. The predecessor cursor
// is taken from the cache when present; otherwise it is computed (pseudo
// cursors), derived from the current page (one step back) or rebuilt by
// walking forward.
func (e *Engine[T]) fetchPageData(ctx context.Context, nav *navigation, target int) (PageResult[T], error) {
	if target <= 1 {
		return e.fetchAfter(ctx, nav.cfg, 1, nil, tripForward)
	}

	if e.opts.pseudo {
		return e.fetchAfter(ctx, nav.cfg, target, PageOffsetCursor(target-1, nav.cfg.Limit), tripForward)
	}

	st := e.store.Load()
	if cursor := st.Cursor(target - 1); cursor != nil {
		return e.fetchAfter(ctx, nav.cfg, target, cursor, tripForward)
	}

	if st.Page == target+1 && len(st.Items) > 0 {
		return e.fetchBefore(ctx, nav, target, st.Items[0])
	}

	cursor, err := e.walkTo(ctx, nav, target-1)
	if err != nil {
		return PageResult[T]{}, err
	}

	return e.fetchAfter(ctx, nav.cfg, target, cursor, tripForward)
}

// fetchBefore fetches the full page preceding first, the first item of page
// target+1, by reading the reversed ordering after first.
func (e *Engine[T]) fetchBefore(ctx context.Context, nav *navigation, target int, first T) (PageResult[T], error) {
	reversed := nav.cfg.OrderBy.Reversed()

	cursor, err := KeysetCursor(reversed, first, e.getters)
	if err != nil {
		return PageResult[T]{}, fmt.Errorf("cannot build cursor of page %d: %w", target+1, err)
	}

	q := NewQuery(nav.cfg.Source).
		WithWhere(nav.cfg.Where...).
		WithSort(reversed...).
		WithLimit(nav.cfg.Limit).
		WithCursor(cursor)

	items, err := e.find(ctx, q, tripBackward, target)
	if err != nil {
		return PageResult[T]{}, err
	}
	slices.Reverse(items)

	result := PageResult[T]{Items: items, HasMore: true}
	result.LastCursor, err = e.pageCursor(nav.cfg, target, items)
	if err != nil {
		return PageResult[T]{}, err
	}

	return result, nil
}

// walkTo rebuilds the cursor of page by fetching every page from the highest
// cached one below it, caching each cursor on the way.
func (e *Engine[T]) walkTo(ctx context.Context, nav *navigation, page int) (Cursor, error) {
	st := e.store.Load()

	from, cursor := 0, Cursor(nil)
	for p := page; p >= 1; p-- {
		if c := st.Cursor(p); c != nil {
			from, cursor = p, c
			break
		}
	}

	e.logger(nav.cfg).WithFields(logrus.Fields{
		"page": page + 1,
		"from": from + 1,
	}).Warnf("no cursor cached before page %d, walking %d pages", page+1, page-from)

	for p := from + 1; p <= page; p++ {
		result, err := e.fetchAfter(ctx, nav.cfg, p, cursor, tripWalk)
		if err != nil {
			return nil, err
		}

		if result.LastCursor == nil {
			return nil, fmt.Errorf("page %d is empty, cannot reach page %d", p, page+1)
		}
		cursor = result.LastCursor

		if err = e.commit(nav, func(st *State[T]) bool {
			st.Cursors[p] = cursor
			return true
		}); err != nil {
			return nil, err
		}
	}

	return cursor, nil
}

// fetchPage loads target and commits it.
func (e *Engine[T]) fetchPage(ctx context.Context, nav *navigation, target int) error {
	if e.store.Load().Total == 0 {
		result, err := e.fetchWithCount(ctx, nav, target, false)
		if err != nil {
			return err
		}

		return e.commitPage(nav, target, result)
	}

	result, err := e.fetchPageData(ctx, nav, target)
	if err != nil {
		return err
	}

	return e.commitPage(nav, target, result)
}

// fetchWithCount fetches page while a count runs alongside.
func (e *Engine[T]) fetchWithCount(ctx context.Context, nav *navigation, page int, force bool) (PageResult[T], error) {
	var result PageResult[T]

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result, err = e.fetchPageData(gctx, nav, page)
		return err
	})
	g.Go(func() error {
		// Count failures are logged by the estimator and never fail a page load.
		_ = e.updateTotalCount(gctx, nav.cfg, nav.filterGen, force)
		return nil
	})

	return result, g.Wait()
}

// commitPage publishes result as page target. An empty result for a page past
// the first one means the previous page was the last: it stays current and
// HasMore is cleared.
func (e *Engine[T]) commitPage(nav *navigation, target int, result PageResult[T]) error {
	limit := nav.cfg.Limit

	return e.commit(nav, func(st *State[T]) bool {
		st.IsLoading = false
		st.Error = ""

		if len(result.Items) == 0 && target > 1 {
			st.HasMore = false
			return true
		}

		hasMore := result.HasMore
		if hasMore && !e.opts.lookahead && st.TotalExact {
			hasMore = int64(target)*int64(limit) < st.Total
		}

		if result.LastCursor != nil {
			st.Cursors[target] = result.LastCursor
		} else {
			delete(st.Cursors, target)
		}
		st.Items = result.Items
		st.Page = target
		st.HasMore = hasMore
		ensureTotalFloor(st, target, limit, len(result.Items), hasMore)

		return true
	})
}

// fetchLastPage jumps to the last page in one round trip: the reversed query
// returns the tail of the dataset, and a forced count tells which page it is.
// A failed count does not fail the jump.
func (e *Engine[T]) fetchLastPage(ctx context.Context, nav *navigation) error {
	var items []T

	q := NewQuery(nav.cfg.Source).
		WithWhere(nav.cfg.Where...).
		WithSort(nav.cfg.OrderBy...).
		WithLimit(nav.cfg.Limit).
		Reversed()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = e.find(gctx, q, tripReverse, 0)
		return err
	})
	g.Go(func() error {
		// On a failed count the total already known, exact or floor, is used.
		_ = e.updateTotalCount(gctx, nav.cfg, nav.filterGen, true)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	st := e.store.Load()
	totalPages := st.TotalPages()

	// The batch is the tail of the dataset; only an exact total tells how
	// much of it belongs to the last page.
	slices.Reverse(items)
	if size := int(st.Total - int64(totalPages-1)*int64(nav.cfg.Limit)); st.TotalExact && size >= 0 && size < len(items) {
		items = items[len(items)-size:]
	}

	cursor, err := e.pageCursor(nav.cfg, totalPages, items)
	if err != nil {
		return err
	}

	return e.commit(nav, func(st *State[T]) bool {
		if cursor != nil {
			st.Cursors[totalPages] = cursor
		}
		st.Items = items
		st.Page = totalPages
		st.HasMore = false
		st.IsLoading = false
		st.Error = ""

		return true
	})
}
