package pagenav

import (
	"fmt"
	"strings"
)

// Operator defines a comparison operator for filtering by column.
// Only OperatorGT and OperatorLT may appear in cursors.
type Operator string

const (
	OperatorEq    Operator = "="
	OperatorNe    Operator = "<>"
	OperatorGT    Operator = ">"
	OperatorGTE   Operator = ">="
	OperatorLT    Operator = "<"
	OperatorLTE   Operator = "<="
	OperatorIn    Operator = "IN"
	OperatorNotIn Operator = "NOT IN"
)

var _operatorAliases = map[string]Operator{
	"=":      OperatorEq,
	"==":     OperatorEq,
	"<>":     OperatorNe,
	"!=":     OperatorNe,
	">":      OperatorGT,
	">=":     OperatorGTE,
	"<":      OperatorLT,
	"<=":     OperatorLTE,
	"IN":     OperatorIn,
	"NOT IN": OperatorNotIn,
	"NOT-IN": OperatorNotIn,
}

// ParseOperator resolves an operator spelling ("==", "!=", "not-in", ...) to
// an Operator.
func ParseOperator(s string) (Operator, error) {
	op, ok := _operatorAliases[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unsupported operator '%s'", s)
	}

	return op, nil
}

// Valid reports whether the store supports o in filters.
func (o Operator) Valid() bool {
	switch o {
	case OperatorEq, OperatorNe, OperatorGT, OperatorGTE, OperatorLT, OperatorLTE, OperatorIn, OperatorNotIn:
		return true
	default:
		return false
	}
}

// IsCursorOperator reports whether o can express a "start after" condition.
func (o Operator) IsCursorOperator() bool {
	return o == OperatorLT || o == OperatorGT
}

// IsSet reports whether o expects a list value.
func (o Operator) IsSet() bool {
	return o == OperatorIn || o == OperatorNotIn
}

func (o Operator) ForOrdering() Direction {
	switch o {
	case OperatorGT:
		return DirectionASC
	case OperatorLT:
		return DirectionDESC
	default:
		panic(fmt.Errorf("cannot map operator '%s' to ordering", o))
	}
}
