package pagenav

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm/clause"
)

type (
	tConjunct struct {
		Column   string
		Value    any
		Operator Operator
	}

	tDisjunct []tConjunct

	// tDNF represents the disjunctive normal form (DNF) of a logical expression.
	// Each disjunct is joined by OR, and each disjunct consists of a list of
	// conjuncts which are joined by AND. A conjunct is the value of
	// Operator(Column, Value).
	//
	// Thus:
	//
	//	DNF = X1 OR X2 ... OR Xn, where Xi = Ai1 AND Ai2 ... AND Aim.
	//
	// Filters of a query form a single disjunct; a keyset cursor expands into
	// a full DNF.
	tDNF []tDisjunct
)

// filtersDisjunct joins the filters of a query into one AND group.
func filtersDisjunct(where []Where) tDisjunct {
	return lo.Map(where, func(w Where, _ int) tConjunct {
		return w.toConjunct()
	})
}

// placeholder returns the SQL operand for the conjunct: set operators take a
// parenthesised list.
func (c tConjunct) placeholder() string {
	return lo.Ternary(c.Operator.IsSet(), "(?)", "?")
}

// toGORMExpression converts a conjunct Operator(Column, Value) into the
// condition "Column Operator ?" with the value bound to the placeholder.
func (c tConjunct) toGORMExpression() clause.Expression {
	sqlClause, arg := c.toSQLClause()

	return clause.Expr{
		SQL:  sqlClause,
		Vars: []any{arg},
	}
}

// toSQLClause converts a conjunct to ("Column Operator ?", value).
//
// Example:
//
//	tConjunct = { Column: "id", Operator: ">", Value: 123}
//
// Result:
//
//	("id > ?", 123)
func (c tConjunct) toSQLClause() (string, any) {
	return fmt.Sprintf("%s %s %s", c.Column, c.Operator, c.placeholder()), parseAnyValue(c.Value)
}

// parseAnyValue turns RFC 3339 strings into time.Time, so cursor values that
// went through a JSON token compare as timestamps again.
func parseAnyValue(v any) any {
	fnParseBytesToTimeOrValue := func(vBytes []byte) any {
		dst := time.Time{}
		if err := dst.UnmarshalText(vBytes); err == nil {
			return dst
		}

		return v
	}

	switch vt := v.(type) {
	case string:
		return fnParseBytesToTimeOrValue([]byte(vt))
	case []byte:
		return fnParseBytesToTimeOrValue(vt)
	default:
		return v
	}
}

// toGORMExpressions converts every conjunct of the disjunct separately, which
// is what a WHERE clause expects for a plain AND list.
func (d tDisjunct) toGORMExpressions() []clause.Expression {
	return lo.Map(d, func(conjunct tConjunct, _ int) clause.Expression {
		return conjunct.toGORMExpression()
	})
}

// toGORMExpression converts a disjunct (K1, K2, K3) into "K1 AND K2 AND K3".
func (d tDisjunct) toGORMExpression() clause.Expression {
	andExpressions := d.toGORMExpressions()

	switch len(andExpressions) {
	case 0:
		return nil
	case 1:
		return andExpressions[0]
	default:
		return clause.And(andExpressions...)
	}
}

// toSQLClause converts a disjunct (K1, K2, K3) into "(K1 AND K2 AND K3)" with
// the values for its placeholders.
//
// Example:
//
//	tDisjunct = {
//		{Column: "id", Operator: ">", Value: 5},
//		{Column: "name", Operator: "<", Value: "abc"}
//	}
//
// Result:
//
//	("(id > ? AND name < ?)", [5, "abc"])
func (d tDisjunct) toSQLClause() (string, []any) {
	if len(d) == 0 {
		return "", nil
	}

	andClauses := make([]string, 0, len(d))
	andValues := make([]any, 0, len(d))
	for _, conjunct := range d {
		andClause, andValue := conjunct.toSQLClause()
		andClauses = append(andClauses, andClause)
		andValues = append(andValues, andValue)
	}

	return fmt.Sprintf("(%s)", strings.Join(andClauses, " AND ")), andValues
}

// toGORMExpression joins the disjuncts of the DNF with OR.
func (d tDNF) toGORMExpression() clause.Expression {
	orExpressions := make([]clause.Expression, 0, len(d))
	for _, disjunct := range d {
		if andExpression := disjunct.toGORMExpression(); andExpression != nil {
			orExpressions = append(orExpressions, andExpression)
		}
	}

	switch len(orExpressions) {
	case 0:
		return nil
	case 1:
		return orExpressions[0]
	default:
		return clause.Or(orExpressions...)
	}
}

// toSQLClause joins the disjuncts of the DNF with OR. An empty DNF renders
// as "TRUE".
//
// Example:
//
//	tDNF = {
//		{{Column: "id", Operator: "<", Value: 10}},
//		{{Column: "id", Operator: "=", Value: 10}, {Column: "name", Operator: "<", Value: "abc"}},
//	}
//
// Result:
//
//	("((id < ?) OR (id = ? AND name < ?))", [10, 10, "abc"])
func (d tDNF) toSQLClause() (string, []any) {
	orClauses := make([]string, 0, len(d))
	values := make([]any, 0, len(d))

	for _, disjunct := range d {
		orClause, orValues := disjunct.toSQLClause()
		if orClause == "" {
			continue
		}

		orClauses = append(orClauses, orClause)
		values = append(values, orValues...)
	}

	if len(orClauses) == 0 {
		return "TRUE", nil
	}

	return fmt.Sprintf("(%s)", strings.Join(orClauses, " OR ")), values
}
