package pagenav

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// PageDirection names a navigation step.
type PageDirection string

const (
	PageNext  PageDirection = "next"
	PagePrev  PageDirection = "prev"
	PageFirst PageDirection = "first"
	PageLast  PageDirection = "last"
)

// Engine pages through one collection of a store that only supports
// forward cursors. It is safe for concurrent use; a navigation started while
// another one is in flight supersedes it.
//
// Subscribers registered with Subscribe are called synchronously and may only
// use the read accessors (State, Items, CurrentPage, ...).
type Engine[T any] struct {
	exec    Executor[T]
	getters Getters[T]
	store   *Store[T]
	opts    options

	// mu guards config, filterGen, navGen and navCancel, and is held while a
	// navigation commits so that superseded results never land.
	mu        sync.Mutex
	config    Config
	filterGen uint64
	navGen    uint64
	navCancel context.CancelFunc

	counts singleflight.Group
}

// NewEngine creates an engine reading through exec. getters build keyset
// cursors from the last item of a page and must cover every ordering column;
// they may be nil with WithPseudoCursors.
func NewEngine[T any](exec Executor[T], getters Getters[T], opts ...Option) *Engine[T] {
	o := options{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	config := Config{}.normalized()

	return &Engine[T]{
		exec:    exec,
		getters: getters,
		store:   NewStore(initialState[T](config.Limit)),
		opts:    o,
		config:  config,
	}
}

// navigation is the snapshot a single navigation works against.
type navigation struct {
	gen       uint64
	filterGen uint64
	cfg       Config
	cancel    context.CancelFunc
}

// begin starts a navigation: it applies mutate to the config, cancels the
// navigation in flight, if any, and returns a context bound to the new one.
// mutate reports whether filters or orderings changed.
func (e *Engine[T]) begin(ctx context.Context, mutate func(cfg *Config) bool) (context.Context, *navigation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if mutate != nil && mutate(&e.config) {
		e.filterGen++
	}

	if e.navCancel != nil {
		e.navCancel()
	}
	e.navGen++

	ctx, cancel := context.WithCancel(ctx)
	e.navCancel = cancel

	return ctx, &navigation{
		gen:       e.navGen,
		filterGen: e.filterGen,
		cfg:       e.config,
		cancel:    cancel,
	}
}

func (e *Engine[T]) end(nav *navigation) {
	e.mu.Lock()
	if e.navGen == nav.gen {
		e.navCancel = nil
	}
	e.mu.Unlock()

	nav.cancel()
}

// commit publishes fn if nav is still the latest navigation.
func (e *Engine[T]) commit(nav *navigation, fn func(st *State[T]) bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if nav.gen != e.navGen {
		e.opts.metrics.supersede()
		return ErrSuperseded
	}

	e.store.Update(fn)

	return nil
}

func (e *Engine[T]) isCurrent(nav *navigation) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return nav.gen == e.navGen
}

// finish turns the outcome of a navigation into its state transition: a
// failure is recorded in State.Error; a superseded navigation leaves the state
// alone and reports ErrSuperseded.
func (e *Engine[T]) finish(nav *navigation, err error, fallback string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrSuperseded) {
		return ErrSuperseded
	}

	if !e.isCurrent(nav) {
		e.opts.metrics.supersede()
		e.logger(nav.cfg).WithError(err).Debug("navigation superseded")
		return ErrSuperseded
	}

	message := errorMessage(err, fallback)
	if commitErr := e.commit(nav, func(st *State[T]) bool {
		st.Error = message
		st.IsLoading = false
		return true
	}); commitErr != nil {
		return commitErr
	}

	return err
}

func (e *Engine[T]) logger(cfg Config) logrus.FieldLogger {
	return e.opts.logger.WithFields(logrus.Fields{
		"source": cfg.Source.String(),
		"limit":  cfg.Limit,
	})
}

func startLoading[T any](st *State[T]) bool {
	st.IsLoading = true
	st.Error = ""
	return true
}

// Initialize (re)configures the engine and adopts the configured page size.
// A navigation in flight is superseded. Page and cursors are left as they
// are: callers switching the source of a used engine should follow up with
// Reset.
func (e *Engine[T]) Initialize(cfg Config) {
	cfg = cfg.normalized()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.navCancel != nil {
		e.navCancel()
		e.navCancel = nil
	}
	e.navGen++

	e.config = cfg
	e.filterGen++
	e.store.Update(func(st *State[T]) bool {
		st.Limit = cfg.Limit
		st.IsLoading = false
		return true
	})
}

// LoadPage navigates one step. A failure is recorded in State.Error and
// returned as well.
func (e *Engine[T]) LoadPage(ctx context.Context, direction PageDirection) error {
	ctx, nav := e.begin(ctx, nil)
	defer e.end(nav)

	if err := e.commit(nav, startLoading[T]); err != nil {
		return err
	}

	return e.finish(nav, e.loadPage(ctx, nav, direction), "failed to load page")
}

func (e *Engine[T]) loadPage(ctx context.Context, nav *navigation, direction PageDirection) error {
	st := e.store.Load()

	var target int
	switch direction {
	case PageNext:
		target = st.Page + 1
	case PagePrev:
		target = max(1, st.Page-1)
	case PageFirst:
		if err := e.commit(nav, func(st *State[T]) bool {
			st.Cursors = map[int]Cursor{}
			return true
		}); err != nil {
			return err
		}
		target = 1
	case PageLast:
		if st.TotalPages() > 1 {
			return e.fetchLastPage(ctx, nav)
		}
		target = 1
	default:
		return fmt.Errorf("unknown page direction '%s'", direction)
	}

	return e.fetchPage(ctx, nav, target)
}

// SetPageSize changes the page size and reloads from page 1.
func (e *Engine[T]) SetPageSize(ctx context.Context, limit int) error {
	limit = NormalizeLimit(limit)

	ctx, nav := e.begin(ctx, func(cfg *Config) bool {
		cfg.Limit = limit
		return false
	})
	defer e.end(nav)

	if err := e.commit(nav, func(st *State[T]) bool {
		st.Limit = limit
		st.Page = 1
		st.Cursors = map[int]Cursor{}
		return true
	}); err != nil {
		return err
	}

	return e.finish(nav, e.refresh(ctx, nav), "failed to refresh")
}

// SetQuery replaces filters and orderings, forces a recount and reloads from
// page 1. Empty orderings fall back to DefaultOrderings.
func (e *Engine[T]) SetQuery(ctx context.Context, where []Where, orderBy Orderings) error {
	return e.setQuery(ctx, func(cfg *Config) {
		cfg.Where = slices.Clone(where)
		cfg.OrderBy = slices.Clone(orderBy)
		if len(cfg.OrderBy) == 0 {
			cfg.OrderBy = DefaultOrderings()
		}
	})
}

// SetFilter replaces the filters and keeps the current orderings.
func (e *Engine[T]) SetFilter(ctx context.Context, where []Where) error {
	return e.setQuery(ctx, func(cfg *Config) {
		cfg.Where = slices.Clone(where)
	})
}

func (e *Engine[T]) setQuery(ctx context.Context, mutate func(cfg *Config)) error {
	ctx, nav := e.begin(ctx, func(cfg *Config) bool {
		mutate(cfg)
		return true
	})
	defer e.end(nav)

	if err := e.commit(nav, func(st *State[T]) bool {
		st.Page = 1
		st.Cursors = map[int]Cursor{}
		st.Total = 0
		st.TotalExact = false
		return true
	}); err != nil {
		return err
	}

	return e.finish(nav, e.refresh(ctx, nav), "failed to refresh")
}

// Refresh re-fetches the current page and forces a recount.
func (e *Engine[T]) Refresh(ctx context.Context) error {
	ctx, nav := e.begin(ctx, nil)
	defer e.end(nav)

	return e.finish(nav, e.refresh(ctx, nav), "failed to refresh")
}

// refresh reloads the current page. Cursors of the current page and the pages
// after it are dropped; cursors before it stay so the page can be reached.
func (e *Engine[T]) refresh(ctx context.Context, nav *navigation) error {
	page := e.store.Load().Page
	if err := e.commit(nav, func(st *State[T]) bool {
		maps.DeleteFunc(st.Cursors, func(p int, _ Cursor) bool {
			return p >= page
		})
		return startLoading(st)
	}); err != nil {
		return err
	}

	result, err := e.fetchWithCount(ctx, nav, page, true)
	if err != nil {
		return err
	}

	return e.commitPage(nav, page, result)
}

// Reset returns to page 1 with a fresh state and forces a recount.
func (e *Engine[T]) Reset(ctx context.Context) error {
	ctx, nav := e.begin(ctx, nil)
	defer e.end(nav)

	if err := e.commit(nav, func(st *State[T]) bool {
		*st = initialState[T](nav.cfg.Limit)
		st.IsLoading = true
		return true
	}); err != nil {
		return err
	}

	result, err := e.fetchWithCount(ctx, nav, 1, true)
	if err == nil {
		err = e.commitPage(nav, 1, result)
	}

	return e.finish(nav, err, "failed to reset pagination")
}

// State returns the current snapshot.
func (e *Engine[T]) State() *State[T] {
	return e.store.Load()
}

// Items returns the items of the current page.
func (e *Engine[T]) Items() []T {
	return e.store.Load().Items
}

func (e *Engine[T]) CurrentPage() int {
	return e.store.Load().Page
}

func (e *Engine[T]) TotalPages() int {
	return e.store.Load().TotalPages()
}

func (e *Engine[T]) HasNextPage() bool {
	return e.store.Load().HasNextPage()
}

func (e *Engine[T]) HasPreviousPage() bool {
	return e.store.Load().HasPreviousPage()
}

func (e *Engine[T]) IsLoading() bool {
	return e.store.Load().IsLoading
}

// LastError returns the message of the last failed navigation, empty if the
// last navigation succeeded.
func (e *Engine[T]) LastError() string {
	return e.store.Load().Error
}

func (e *Engine[T]) Total() int64 {
	return e.store.Load().Total
}

// Config returns the current configuration.
func (e *Engine[T]) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.config.normalized()
}

// Subscribe calls fn with every published snapshot until unsubscribed.
func (e *Engine[T]) Subscribe(fn func(*State[T])) (unsubscribe func()) {
	return e.store.Subscribe(fn)
}
