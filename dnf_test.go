package pagenav

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"
)

func Test_tConjunct_toSQLClause(t *testing.T) {
	placedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		conjunct tConjunct
		wantSQL  string
		wantArg  any
	}{
		{
			name:     "equality on a status",
			conjunct: tConjunct{Column: "status", Operator: OperatorEq, Value: "done"},
			wantSQL:  "status = ?",
			wantArg:  "done",
		},
		{
			name:     "not equal",
			conjunct: tConjunct{Column: "status", Operator: OperatorNe, Value: "archived"},
			wantSQL:  "status <> ?",
			wantArg:  "archived",
		},
		{
			name:     "lower bound on an amount",
			conjunct: tConjunct{Column: "amount", Operator: OperatorGTE, Value: int64(100)},
			wantSQL:  "amount >= ?",
			wantArg:  int64(100),
		},
		{
			name:     "keyset step on a descending id",
			conjunct: tConjunct{Column: "id", Operator: OperatorLT, Value: 42},
			wantSQL:  "id < ?",
			wantArg:  42,
		},
		{
			name:     "in takes a parenthesised list",
			conjunct: tConjunct{Column: "status", Operator: OperatorIn, Value: []any{"new", "done"}},
			wantSQL:  "status IN (?)",
			wantArg:  []any{"new", "done"},
		},
		{
			name:     "not in takes a parenthesised list",
			conjunct: tConjunct{Column: "status", Operator: OperatorNotIn, Value: []any{"archived"}},
			wantSQL:  "status NOT IN (?)",
			wantArg:  []any{"archived"},
		},
		{
			name:     "timestamp from a decoded token",
			conjunct: tConjunct{Column: "placed_at", Operator: OperatorGT, Value: "2024-03-01T10:00:00Z"},
			wantSQL:  "placed_at > ?",
			wantArg:  placedAt,
		},
		{
			name:     "timestamp bytes",
			conjunct: tConjunct{Column: "placed_at", Operator: OperatorLTE, Value: []byte("2024-03-01T10:00:00Z")},
			wantSQL:  "placed_at <= ?",
			wantArg:  placedAt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotArg := tt.conjunct.toSQLClause()

			require.Equal(t, tt.wantSQL, gotSQL)
			require.Equal(t, tt.wantArg, gotArg)
		})
	}
}

func Test_tConjunct_toGORMExpression(t *testing.T) {
	got := tConjunct{Column: "tenant", Operator: OperatorEq, Value: "acme"}.toGORMExpression()

	require.Equal(t, clause.Expr{SQL: "tenant = ?", Vars: []any{"acme"}}, got)
}

func Test_tDisjunct_toGORMExpression(t *testing.T) {
	t.Run("no filters", func(t *testing.T) {
		require.Nil(t, tDisjunct{}.toGORMExpression())
	})

	t.Run("single filter is not wrapped", func(t *testing.T) {
		got := tDisjunct{{Column: "status", Operator: OperatorEq, Value: "done"}}.toGORMExpression()

		require.Equal(t, clause.Expr{SQL: "status = ?", Vars: []any{"done"}}, got)
	})

	t.Run("filters are joined with AND", func(t *testing.T) {
		got := tDisjunct{
			{Column: "status", Operator: OperatorEq, Value: "done"},
			{Column: "amount", Operator: OperatorGT, Value: 10},
		}.toGORMExpression()

		and, ok := got.(clause.AndConditions)
		require.True(t, ok)
		require.Equal(t, []clause.Expression{
			clause.Expr{SQL: "status = ?", Vars: []any{"done"}},
			clause.Expr{SQL: "amount > ?", Vars: []any{10}},
		}, and.Exprs)
	})
}

func Test_tDNF_toGORMExpression(t *testing.T) {
	require.Nil(t, tDNF{}.toGORMExpression())
	require.Nil(t, tDNF{{}, {}}.toGORMExpression())

	single := tDNF{{}, {{Column: "id", Operator: OperatorGT, Value: 3}}}.toGORMExpression()
	require.Equal(t, clause.Expr{SQL: "id > ?", Vars: []any{3}}, single)

	cursor := NewDefaultCursor(
		CursorElement{Column: "status", Value: "new", Operator: OperatorGT},
		CursorElement{Column: "id", Value: 3, Operator: OperatorGT},
	)
	or, ok := cursor.toDNF().toGORMExpression().(clause.OrConditions)
	require.True(t, ok)
	require.Len(t, or.Exprs, 2)
	require.Equal(t, clause.Expr{SQL: "status > ?", Vars: []any{"new"}}, or.Exprs[0])
	require.IsType(t, clause.AndConditions{}, or.Exprs[1])
}

func Test_tDisjunct_toSQLClause(t *testing.T) {
	gotSQL, gotArgs := tDisjunct{}.toSQLClause()
	require.Empty(t, gotSQL)
	require.Nil(t, gotArgs)

	gotSQL, gotArgs = tDisjunct{
		{Column: "tenant", Operator: OperatorEq, Value: "acme"},
		{Column: "status", Operator: OperatorIn, Value: []any{"new", "done"}},
	}.toSQLClause()
	require.Equal(t, "(tenant = ? AND status IN (?))", gotSQL)
	require.Equal(t, []any{"acme", []any{"new", "done"}}, gotArgs)
}

func Test_tDNF_toSQLClause(t *testing.T) {
	tests := []struct {
		name     string
		dnf      tDNF
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "empty matches everything",
			dnf:     nil,
			wantSQL: "TRUE",
		},
		{
			name:    "empty disjuncts are skipped",
			dnf:     tDNF{{}, {}},
			wantSQL: "TRUE",
		},
		{
			name:     "single column cursor",
			dnf:      tDNF{{{Column: "id", Operator: OperatorGT, Value: 10}}},
			wantSQL:  "((id > ?))",
			wantArgs: []any{10},
		},
		{
			name: "skips an empty disjunct between others",
			dnf: tDNF{
				{{Column: "status", Operator: OperatorLT, Value: "new"}},
				{},
				{{Column: "status", Operator: OperatorEq, Value: "new"}, {Column: "id", Operator: OperatorLT, Value: 8}},
			},
			wantSQL:  "((status < ?) OR (status = ? AND id < ?))",
			wantArgs: []any{"new", "new", 8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotArgs := tt.dnf.toSQLClause()

			require.Equal(t, tt.wantSQL, gotSQL)
			if tt.wantArgs == nil {
				require.Empty(t, gotArgs)
				return
			}
			require.Equal(t, tt.wantArgs, gotArgs)
		})
	}
}

func Test_DefaultCursor_toDNF_Orderings(t *testing.T) {
	getters := Getters[tOrder]{
		"status": func(o tOrder) any { return o.Status },
		"id":     func(o tOrder) any { return o.ID },
	}
	last := tOrder{ID: 7, Status: "done"}
	orderings := Orderings{
		{Column: "status", Direction: DirectionASC},
		{Column: "id", Direction: DirectionDESC},
	}

	tests := []struct {
		name      string
		orderings Orderings
		wantSQL   string
	}{
		{
			name:      "forward reads after the item",
			orderings: orderings,
			wantSQL:   "((status > ?) OR (status = ? AND id < ?))",
		},
		{
			name:      "reversed reads before the item",
			orderings: orderings.Reversed(),
			wantSQL:   "((status < ?) OR (status = ? AND id > ?))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, err := KeysetCursor(tt.orderings, last, getters)
			require.NoError(t, err)

			dnf := cursor.toDNF()
			require.Len(t, dnf, len(tt.orderings))
			require.Len(t, dnf[1], 2)
			require.Equal(t, OperatorEq, dnf[1][0].Operator)

			gotSQL, gotArgs := dnf.toSQLClause()
			require.Equal(t, tt.wantSQL, gotSQL)
			require.Equal(t, []any{"done", "done", uint(7)}, gotArgs)
		})
	}
}

func Test_filtersDisjunct(t *testing.T) {
	where := []Where{
		{Column: "status", Operator: OperatorEq, Value: "done"},
		{Column: "age", Operator: OperatorGTE, Value: int64(18)},
	}

	gotSQL, gotVals := filtersDisjunct(where).toSQLClause()

	require.Equal(t, "(status = ? AND age >= ?)", gotSQL)
	require.Equal(t, []any{"done", int64(18)}, gotVals)

	gotSQL, gotVals = filtersDisjunct(nil).toSQLClause()
	require.Empty(t, gotSQL)
	require.Empty(t, gotVals)
}
