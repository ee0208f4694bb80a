package pagenav

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/samber/lo"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newGORMMySQLMock() (string, *gorm.DB, sqlmock.Sqlmock, error) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		return "", nil, nil, err
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      mockDB,
		SkipInitializeWithVersion: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return "", nil, nil, err
	}

	return "mysql", db.Debug(), mock, nil
}

func newGORMPostgresMock() (string, *gorm.DB, sqlmock.Sqlmock, error) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		return "", nil, nil, err
	}

	dialector := postgres.New(postgres.Config{
		Conn: mockDB,
	})

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return "", nil, nil, err
	}

	return "postgres", db.Debug(), mock, nil
}

type tItem struct {
	ID    int
	Group string
}

var _itemGetters = Getters[tItem]{
	"id": func(i tItem) any { return i.ID },
}

func newItems(n int, group string) []tItem {
	items := make([]tItem, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, tItem{ID: i, Group: group})
	}

	return items
}

// memoryExecutor serves queries from a slice. It understands equality
// filters, orderings by "id", both cursor kinds and the dataset limit.
type memoryExecutor struct {
	mu       sync.Mutex
	items    []tItem
	findErr  error
	countErr error

	// findHook and countHook run before the corresponding call is served.
	findHook  func(ctx context.Context, q *Query) error
	countHook func(ctx context.Context, q *Query) error

	finds  atomic.Int32
	counts atomic.Int32
}

func newMemoryExecutor(items []tItem) *memoryExecutor {
	return &memoryExecutor{items: items}
}

func (m *memoryExecutor) match(where []Where) []tItem {
	return lo.Filter(m.items, func(item tItem, _ int) bool {
		return lo.EveryBy(where, func(w Where) bool {
			switch w.Column {
			case "group":
				return w.Operator == OperatorEq && item.Group == w.Value
			case "id":
				return w.Operator == OperatorEq && item.ID == w.Value
			default:
				return false
			}
		})
	})
}

// Find - implements Executor.
func (m *memoryExecutor) Find(ctx context.Context, q *Query) ([]tItem, error) {
	m.finds.Add(1)

	if m.findHook != nil {
		if err := m.findHook(ctx, q); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}

	items := m.match(q.GetWhere())
	desc := len(q.GetSort()) > 0 && q.GetSort()[0].Direction == DirectionDESC
	sort.Slice(items, func(i, j int) bool {
		if desc {
			return items[i].ID > items[j].ID
		}
		return items[i].ID < items[j].ID
	})

	switch cursor := q.GetCursor().(type) {
	case *DefaultCursor:
		element := cursor.GetElements()[0]
		value := element.Value.(int)
		items = lo.Filter(items, func(item tItem, _ int) bool {
			if element.Operator == OperatorGT {
				return item.ID > value
			}
			return item.ID < value
		})
	case *PseudoCursor:
		items = items[min(cursor.GetOffset(), len(items)):]
	}

	if limit := q.GetDatasetLimit(); limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

// Count - implements Executor.
func (m *memoryExecutor) Count(ctx context.Context, q *Query) (int64, error) {
	m.counts.Add(1)

	if m.countHook != nil {
		if err := m.countHook(ctx, q); err != nil {
			return 0, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.countErr != nil {
		return 0, m.countErr
	}

	return int64(len(m.match(q.GetWhere()))), nil
}

func (m *memoryExecutor) setItems(items []tItem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = items
}

func ids(items []tItem) []int {
	return lo.Map(items, func(item tItem, _ int) int {
		return item.ID
	})
}
