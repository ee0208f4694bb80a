package pagenav

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Direction defines the sort direction for the requested dataset.
type Direction string

const (
	DirectionASC  Direction = "ASC"
	DirectionDESC Direction = "DESC"
)

func (o Direction) Valid() bool {
	return o == DirectionASC || o == DirectionDESC
}

func (o Direction) ForOperator() Operator {
	switch o {
	case DirectionASC:
		return OperatorGT
	case DirectionDESC:
		return OperatorLT
	default:
		panic(fmt.Errorf("cannot map direction '%s' to operator", o))
	}
}

// Reverse returns the opposite direction.
func (o Direction) Reverse() Direction {
	return lo.Ternary(o == DirectionASC, DirectionDESC, DirectionASC)
}

type (
	Orderings []OrderBy
	OrderBy   struct {
		Column    string    `yaml:"column" json:"column"`
		Direction Direction `yaml:"direction" json:"direction"`
	}

	ColumnAlias = string

	// ColumnMapping maps external column aliases to fully qualified column names.
	// Use it when bare column names could cause an "ambiguous column name" error.
	// Key is an external alias, value is an internal column name.
	ColumnMapping = map[ColumnAlias]string
)

// DefaultOrderings is used when a Config carries no orderings.
func DefaultOrderings() Orderings {
	return Orderings{{Column: "updated_at", Direction: DirectionDESC}}
}

var _availableColumnNameSymbols = append([]rune("_.'`\""), lo.AlphanumericCharset...)

func validateColumn(column string) error {
	if column == "" {
		return fmt.Errorf("empty column name")
	}

	// Guard against SQL injection by restricting allowed characters in column names.
	if !lo.Every(_availableColumnNameSymbols, []rune(column)) {
		return fmt.Errorf("column name contains forbidden symbols '%s'", column)
	}

	return nil
}

func (o OrderBy) validate() error {
	if !o.Direction.Valid() {
		return fmt.Errorf("invalid ordering direction '%s'", o.Direction)
	}

	if err := validateColumn(o.Column); err != nil {
		return fmt.Errorf("ordering: %w", err)
	}

	return nil
}

// Reversed returns a copy of o with every direction flipped. Querying with
// reversed orderings yields the tail of the dataset first.
func (o Orderings) Reversed() Orderings {
	return lo.Map(o, func(ordering OrderBy, _ int) OrderBy {
		return OrderBy{Column: ordering.Column, Direction: ordering.Direction.Reverse()}
	})
}

// Equal reports whether both orderings list the same columns and directions.
func (o Orderings) Equal(other Orderings) bool {
	if len(o) != len(other) {
		return false
	}

	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}

	return true
}

// ToSQLSlice converts Orderings to a slice of strings in the form
// "<order_column> <order_direction>" suitable for SQL query builders.
//
// Example: for Orderings: [{"a", "ASC"}, {"b", "DESC"}] returns ["a ASC", "b DESC"].
func (o Orderings) ToSQLSlice() []string {
	ret := make([]string, 0, len(o))
	for _, ordering := range o {
		ret = append(ret, fmt.Sprintf("%s %s", ordering.Column, ordering.Direction))
	}

	return ret
}

// ToSQL converts Orderings to a single string
// "<order_column_1> <order_direction_1>, <order_column_2> <order_direction_2>"
// suitable for embedding into an SQL query.
// Example: for [{"a", "ASC"}, {"b", "DESC"}] returns "a ASC, b DESC".
func (o Orderings) ToSQL() string {
	return strings.Join(o.ToSQLSlice(), ", ")
}

// Apply applies the ordering to a gorm query.
func (o Orderings) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(o.ToSQL())
}

func (o Orderings) validate() error {
	if len(o) == 0 {
		return fmt.Errorf("empty ordering list")
	}

	var err error
	for _, ordering := range o {
		err = ordering.validate()
		if err != nil {
			return err
		}
	}

	return nil
}

// ParseSort builds Orderings from a list of strings in the format
// "column asc|desc". Column aliases are resolved via ColumnMapping; a nil
// mapping accepts any column name as is.
// Returns an error if an alias is not found in the mapping.
func ParseSort(stringsOrderings []string, columnMapping ColumnMapping) (Orderings, error) {
	ret := make([]OrderBy, 0, len(stringsOrderings))

	for _, stringOrdering := range stringsOrderings {
		cutStringOrdering := strings.Fields(stringOrdering)
		if len(cutStringOrdering) != 2 {
			return nil, fmt.Errorf("invalid ordering string format '%s'", stringOrdering)
		}

		columnName, err := resolveColumn(cutStringOrdering[0], columnMapping)
		if err != nil {
			return nil, err
		}

		ordering := OrderBy{
			Column:    columnName,
			Direction: Direction(strings.ToUpper(cutStringOrdering[1])),
		}
		if err = ordering.validate(); err != nil {
			return nil, err
		}

		ret = append(ret, ordering)
	}

	return ret, nil
}

func resolveColumn(columnAlias ColumnAlias, columnMapping ColumnMapping) (string, error) {
	if columnMapping == nil {
		return columnAlias, nil
	}

	columnName := columnMapping[columnAlias]
	if columnName == "" {
		return "", fmt.Errorf("invalid column alias. closest: '%s'", closestAlias(columnAlias, lo.Keys(columnMapping)))
	}

	return columnName, nil
}

func closestAlias(input ColumnAlias, dataSet []ColumnAlias) ColumnAlias {
	minDist := math.MaxInt
	closest := ""

	for _, dataSetAlias := range dataSet {
		dist := levenshtein([]rune(dataSetAlias), []rune(input))
		if dist < minDist || (dist == minDist && dataSetAlias < closest) {
			minDist = dist
			closest = dataSetAlias
		}
	}

	return closest
}
