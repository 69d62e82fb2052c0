// Package rules defines the automation rule model attached to workflow stages
// and the formats it is persisted in.
//
// A Rule pairs a Trigger (the event class that wakes it) with an ordered list of
// Conditions combined by a single Logic operator and an ordered list of Actions.
// Trigger and Action are tagged variants: the discriminator selects which of the
// optional fields are meaningful, and Validate enforces that per variant.
package rules

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Logic combines the conditions of one rule.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Valid reports whether l is AND, OR, or empty (treated as AND).
func (l Logic) Valid() bool {
	return l == "" || l == LogicAnd || l == LogicOr
}

// Operator compares a field value to a condition operand.
type Operator string

const (
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpGreater        Operator = ">"
	OpLess           Operator = "<"
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpContains       Operator = "contains"
	OpStartsWith     Operator = "starts_with"
	OpIsEmpty        Operator = "is_empty"
	OpIsNotEmpty     Operator = "is_not_empty"
)

var operators = []Operator{
	OpGreaterOrEqual,
	OpLessOrEqual,
	OpGreater,
	OpLess,
	OpEqual,
	OpNotEqual,
	OpContains,
	OpStartsWith,
	OpIsEmpty,
	OpIsNotEmpty,
}

// Operators returns every known operator.
func Operators() []Operator {
	return operators
}

// Known reports whether op is a recognized operator.
func (op Operator) Known() bool {
	return slices.Contains(operators, op)
}

// Unary reports whether op ignores the condition operand.
func (op Operator) Unary() bool {
	return op == OpIsEmpty || op == OpIsNotEmpty
}

// Value is a condition operand. It is stored as a string but decodes from
// JSON numbers and booleans so hand-written rule sets stay readable.
type Value string

// UnmarshalJSON accepts a string, number, boolean, or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case nil:
		*v = ""
	case string:
		*v = Value(t)
	case float64:
		*v = Value(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*v = Value(strconv.FormatBool(t))
	default:
		return fmt.Errorf("condition value must be a scalar, got %s", data)
	}
	return nil
}

// Condition tests one field of an application.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
}

// Validate checks the condition shape. Field existence and operator legality
// for the field type depend on a field catalog and are checked by the engine.
func (c Condition) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("%w: field required", ErrInvalidCondition)
	}
	if !c.Operator.Known() {
		return fmt.Errorf("%w: %q", ErrInvalidOperator, c.Operator)
	}
	return nil
}

// Rule is a stage-scoped automation rule.
type Rule struct {
	ID         string      `json:"id,omitempty"`
	Name       string      `json:"name,omitempty"`
	Trigger    Trigger     `json:"trigger,omitzero"`
	Conditions []Condition `json:"conditions"`
	Logic      Logic       `json:"conditionLogic"`
	Actions    []Action    `json:"actions"`
	Active     bool        `json:"isActive"`
	Priority   int         `json:"priority"`
}

type ruleAlias Rule

type ruleWire struct {
	ruleAlias
	Active *bool   `json:"isActive"`
	Action *Action `json:"action"`
}

// UnmarshalJSON accepts either a single "action" or an "actions" list and
// treats an absent isActive as true.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var w ruleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	rule := Rule(w.ruleAlias)
	rule.Active = w.Active == nil || *w.Active

	if w.Action != nil {
		rule.Actions = append([]Action{*w.Action}, rule.Actions...)
	}

	*r = rule
	return nil
}

// Validate checks logic, trigger, conditions, and actions.
func (r Rule) Validate() error {
	if !r.Logic.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLogic, r.Logic)
	}
	if err := r.Trigger.Validate(); err != nil {
		return err
	}
	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("%w: at least one action required", ErrInvalidAction)
	}
	for i, a := range r.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// Label returns the name of the rule, falling back to its id.
func (r Rule) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// Ordered returns the active rules sorted by ascending priority.
// Rules with equal priority keep their declaration order.
func Ordered(rs []Rule) []Rule {
	active := make([]Rule, 0, len(rs))
	for _, r := range rs {
		if r.Active {
			active = append(active, r)
		}
	}

	slices.SortStableFunc(active, func(a, b Rule) int {
		return a.Priority - b.Priority
	})
	return active
}
