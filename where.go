package pagenav

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Where is a single filter predicate. Predicates of a query are combined
// with AND.
type Where struct {
	Column   string   `yaml:"column" json:"column"`
	Operator Operator `yaml:"operator" json:"operator"`
	Value    any      `yaml:"value" json:"value"`
}

func (w Where) validate() error {
	if err := validateColumn(w.Column); err != nil {
		return fmt.Errorf("filter: %w", err)
	}

	if !w.Operator.Valid() {
		return fmt.Errorf("invalid filter operator '%s'", w.Operator)
	}

	if w.Operator.IsSet() {
		kind := reflect.ValueOf(w.Value).Kind()
		if kind != reflect.Slice && kind != reflect.Array {
			return fmt.Errorf("operator '%s' on '%s' expects a list value", w.Operator, w.Column)
		}
	}

	return nil
}

func (w Where) toConjunct() tConjunct {
	return tConjunct{
		Column:   w.Column,
		Value:    w.Value,
		Operator: w.Operator,
	}
}

// ParseWhere builds filters from strings of the form "column op value", e.g.
// "status = done", "age >= 18" or "city in Berlin,Paris". Values that look
// like integers, floats or booleans are converted; everything else stays a
// string. Column aliases are resolved via ColumnMapping as in ParseSort.
func ParseWhere(stringsFilters []string, columnMapping ColumnMapping) ([]Where, error) {
	ret := make([]Where, 0, len(stringsFilters))

	for _, stringFilter := range stringsFilters {
		fields := strings.Fields(stringFilter)
		if len(fields) < 3 {
			return nil, fmt.Errorf("invalid filter string format '%s'", stringFilter)
		}

		column, err := resolveColumn(fields[0], columnMapping)
		if err != nil {
			return nil, err
		}

		// "not in" is the only operator spelled with two words.
		opEnd := 2
		if strings.EqualFold(fields[1], "not") && len(fields) > 3 {
			opEnd = 3
		}

		op, err := ParseOperator(strings.Join(fields[1:opEnd], " "))
		if err != nil {
			return nil, err
		}

		raw := strings.Join(fields[opEnd:], " ")
		where := Where{Column: column, Operator: op}
		if op.IsSet() {
			where.Value = lo.Map(strings.Split(raw, ","), func(item string, _ int) any {
				return parseScalar(strings.TrimSpace(item))
			})
		} else {
			where.Value = parseScalar(raw)
		}

		if err = where.validate(); err != nil {
			return nil, err
		}

		ret = append(ret, where)
	}

	return ret, nil
}

func parseScalar(raw string) any {
	if unquoted, err := strconv.Unquote(raw); err == nil {
		return unquoted
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if raw == "true" || raw == "false" {
		return raw == "true"
	}

	return raw
}
