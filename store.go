package pagenav

import (
	"maps"
	"sync"
	"sync/atomic"
)

// State is one immutable snapshot of the pagination state. Snapshots handed
// out by Store must not be modified, including their Cursors and Items.
type State[T any] struct {
	// Page current page number, starting at 1.
	Page int
	// Limit page size.
	Limit int
	// Total number of items. A lower bound until TotalExact is set.
	Total int64
	// TotalExact is set once an exact count for the current filters landed.
	TotalExact bool
	// Cursors continuation cursor after the last item of each known page.
	Cursors map[int]Cursor
	// Items of the current page.
	Items []T
	// IsLoading is set while a navigation is in flight.
	IsLoading bool
	// Error message of the last failed navigation, empty if it succeeded.
	Error string
	// HasMore reports whether items exist past the current page.
	HasMore bool
}

func initialState[T any](limit int) State[T] {
	return State[T]{
		Page:    1,
		Limit:   limit,
		Cursors: map[int]Cursor{},
		HasMore: true,
	}
}

// TotalPages returns ceil(Total/Limit), at least 1.
func (s *State[T]) TotalPages() int {
	if s.Limit <= 0 || s.Total <= 0 {
		return 1
	}

	return int((s.Total + int64(s.Limit) - 1) / int64(s.Limit))
}

func (s *State[T]) HasNextPage() bool {
	return s.HasMore
}

func (s *State[T]) HasPreviousPage() bool {
	return s.Page > 1
}

// Cursor returns the cursor stored for page, nil if there is none.
func (s *State[T]) Cursor(page int) Cursor {
	return s.Cursors[page]
}

func (s *State[T]) clone() *State[T] {
	next := *s
	next.Cursors = maps.Clone(s.Cursors)
	if next.Cursors == nil {
		next.Cursors = map[int]Cursor{}
	}

	return &next
}

// Store holds the current State. Every write replaces the snapshot as a whole,
// so readers never observe a partially applied transition.
type Store[T any] struct {
	mu          sync.Mutex
	current     atomic.Pointer[State[T]]
	subscribers map[uint64]func(*State[T])
	nextID      uint64
}

func NewStore[T any](initial State[T]) *Store[T] {
	s := &Store[T]{subscribers: map[uint64]func(*State[T]){}}
	s.current.Store(initial.clone())

	return s
}

// Load returns the current snapshot.
func (s *Store[T]) Load() *State[T] {
	return s.current.Load()
}

// Update applies fn to a copy of the current snapshot and publishes the copy
// if fn reports a change. Writers are serialized; subscribers are notified in
// publication order and must not call Update themselves.
func (s *Store[T]) Update(fn func(*State[T]) bool) *State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().clone()
	if !fn(next) {
		return s.current.Load()
	}

	s.current.Store(next)
	for _, subscriber := range s.subscribers {
		subscriber(next)
	}

	return next
}

// Replace publishes state as the new snapshot.
func (s *Store[T]) Replace(state State[T]) *State[T] {
	return s.Update(func(st *State[T]) bool {
		*st = *state.clone()
		return true
	})
}

// Subscribe registers fn to be called with every published snapshot. The
// returned func removes the subscription.
func (s *Store[T]) Subscribe(fn func(*State[T])) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subscribers, id)
	}
}
