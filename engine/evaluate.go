package engine

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/JaimeStill/stagehand/rules"
)

// Values maps field ids to the current application data.
type Values map[string]any

// Check reports the configuration error, if any, that makes a condition set
// unsatisfiable against the catalog: an unknown logic operator, a field the
// catalog does not contain, or an operator illegal for the field type.
func Check(conditions []rules.Condition, logic rules.Logic, catalog *FieldCatalog) error {
	if !logic.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLogic, logic)
	}
	for _, c := range conditions {
		f, ok := catalog.Lookup(c.Field)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, c.Field)
		}
		if !f.Type.Allows(c.Operator) {
			return fmt.Errorf("%w: %q on %s field %q", ErrIllegalOperator, c.Operator, f.Type, f.ID)
		}
	}
	return nil
}

// Evaluate combines the conditions with logic against values.
// An empty condition list is satisfied. A condition set that fails Check is
// never satisfied, whatever the logic.
func Evaluate(conditions []rules.Condition, logic rules.Logic, catalog *FieldCatalog, values Values) bool {
	if len(conditions) == 0 {
		return true
	}
	if Check(conditions, logic, catalog) != nil {
		return false
	}

	for _, c := range conditions {
		f, _ := catalog.Lookup(c.Field)
		ok := holds(c, f.Type, values[c.Field])

		if logic == rules.LogicOr && ok {
			return true
		}
		if logic != rules.LogicOr && !ok {
			return false
		}
	}
	return logic != rules.LogicOr
}

func holds(c rules.Condition, t FieldType, value any) bool {
	switch c.Operator {
	case rules.OpIsEmpty:
		return isEmpty(value)
	case rules.OpIsNotEmpty:
		return !isEmpty(value)
	}

	operand := string(c.Value)

	switch t {
	case TypeNumber:
		return compareNumber(c.Operator, value, operand)
	case TypeBoolean:
		return compareBool(c.Operator, value, operand)
	case TypeText:
		return compareText(c.Operator, toString(value), operand)
	case TypeSelect, TypeStatus, TypeTags:
		if items, ok := toStrings(value); ok {
			return compareMembership(c.Operator, items, operand)
		}
		return compareText(c.Operator, toString(value), operand)
	default:
		return false
	}
}

func compareNumber(op rules.Operator, value any, operand string) bool {
	v, ok := toFloat(value)
	if !ok {
		return false
	}
	w, ok := parseFinite(operand)
	if !ok {
		return false
	}

	switch op {
	case rules.OpGreaterOrEqual:
		return v >= w
	case rules.OpLessOrEqual:
		return v <= w
	case rules.OpGreater:
		return v > w
	case rules.OpLess:
		return v < w
	case rules.OpEqual:
		return v == w
	case rules.OpNotEqual:
		return v != w
	default:
		return false
	}
}

func compareBool(op rules.Operator, value any, operand string) bool {
	v, ok := toBool(value)
	if !ok {
		return false
	}
	w, err := strconv.ParseBool(strings.TrimSpace(operand))
	if err != nil {
		return false
	}

	switch op {
	case rules.OpEqual:
		return v == w
	case rules.OpNotEqual:
		return v != w
	default:
		return false
	}
}

func compareText(op rules.Operator, v, operand string) bool {
	switch op {
	case rules.OpEqual:
		return v == operand
	case rules.OpNotEqual:
		return v != operand
	case rules.OpContains:
		return strings.Contains(v, operand)
	case rules.OpStartsWith:
		return strings.HasPrefix(v, operand)
	default:
		return false
	}
}

func compareMembership(op rules.Operator, items []string, operand string) bool {
	member := false
	for _, item := range items {
		if item == operand {
			member = true
			break
		}
	}

	switch op {
	case rules.OpEqual, rules.OpContains:
		return member
	case rules.OpNotEqual:
		return !member
	default:
		return false
	}
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return true
		}
		return isEmpty(v.Elem().Interface())
	}
	return false
}

// toFloat reads a finite number from value. NaN and infinities are
// rejected so a condition against them never holds.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case string:
		return parseFinite(v)
	case fmt.Stringer:
		return parseFinite(v.String())
	}

	rv := reflect.ValueOf(value)
	var f float64
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f = float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		f = float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		f = rv.Float()
	case reflect.String:
		return parseFinite(rv.String())
	default:
		return 0, false
	}
	return f, finite(f)
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, finite(f)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	default:
		return false, false
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func toStrings(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = toString(item)
		}
		return out, true
	default:
		return nil, false
	}
}
