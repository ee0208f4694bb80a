package pagenav

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Count cache lookup results reported by Metrics.
const (
	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheError = "error"
)

// UpdateTotalCount fetches the exact number of items matching the current
// filters. Without force it does nothing once a total is known. Concurrent
// calls share a single count request.
//
// A failure is logged and returned; it never touches State.Error.
func (e *Engine[T]) UpdateTotalCount(ctx context.Context, force bool) error {
	e.mu.Lock()
	cfg, gen := e.config, e.filterGen
	e.mu.Unlock()

	return e.updateTotalCount(ctx, cfg, gen, force)
}

func (e *Engine[T]) updateTotalCount(ctx context.Context, cfg Config, gen uint64, force bool) error {
	if !force && e.store.Load().Total > 0 {
		return nil
	}

	// The shared count outlives the caller that started it: the other callers
	// are still waiting for it.
	shared := context.WithoutCancel(ctx)
	ch := e.counts.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return e.count(shared, cfg, gen, force)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (e *Engine[T]) count(ctx context.Context, cfg Config, gen uint64, force bool) (int64, error) {
	// A flight started right after another one landed has nothing to do.
	if st := e.store.Load(); !force && st.Total > 0 {
		return st.Total, nil
	}

	q := NewQuery(cfg.Source).WithWhere(cfg.Where...)
	log := e.logger(cfg)

	var key string
	if e.opts.countCache != nil {
		key = CountKey(q)

		if !force {
			total, ok, err := e.opts.countCache.Get(ctx, key)
			switch {
			case err != nil:
				e.opts.metrics.cacheLookup(cacheError)
				log.WithError(err).Warn("count cache lookup failed")
			case ok:
				e.opts.metrics.cacheLookup(cacheHit)
				e.commitTotal(gen, total)
				return total, nil
			default:
				e.opts.metrics.cacheLookup(cacheMiss)
			}
		}
	}

	start := time.Now()
	total, err := e.exec.Count(ctx, q)
	e.opts.metrics.observe(tripCount, start, err)
	if err != nil {
		log.WithError(err).Error("failed to update total count")
		return 0, fmt.Errorf("cannot count %s: %w", cfg.Source, err)
	}

	if key != "" {
		if err = e.opts.countCache.Set(ctx, key, total, e.opts.countCacheTTL); err != nil {
			log.WithError(err).Warn("count cache store failed")
		}
	}

	if e.commitTotal(gen, total) {
		log.WithField("total", total).Debug("total count updated")
	}

	return total, nil
}

// commitTotal publishes an exact total counted under filter generation gen.
// Counts of outdated filters are dropped.
func (e *Engine[T]) commitTotal(gen uint64, total int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.filterGen {
		return false
	}

	e.store.Update(func(st *State[T]) bool {
		st.Total = total
		st.TotalExact = true
		return true
	})

	return true
}

// EnsureTotalFloor raises the total to the lower bound proven by a page:
// (page-1)*limit + itemsOnPage, plus one if more items follow.
func (e *Engine[T]) EnsureTotalFloor(page, limit, itemsOnPage int, hasMore bool) {
	e.store.Update(func(st *State[T]) bool {
		return ensureTotalFloor(st, page, limit, itemsOnPage, hasMore)
	})
}

func ensureTotalFloor[T any](st *State[T], page, limit, itemsOnPage int, hasMore bool) bool {
	minimum := int64(page-1)*int64(limit) + int64(itemsOnPage)
	if hasMore {
		minimum++
	}

	if st.Total >= minimum {
		return false
	}
	st.Total = minimum

	return true
}
