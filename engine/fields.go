// Package engine evaluates stage automation rules against application
// snapshots and computes the resulting application state.
//
// Every function in this package is synchronous and free of I/O. Catalogs
// (fields, targets, rules) are passed in as read-only snapshots; loading them
// and persisting results is the caller's job.
package engine

import (
	"encoding/json"
	"slices"

	"github.com/JaimeStill/stagehand/rules"
)

// FieldType is the declared value type of an evaluable field.
type FieldType string

const (
	TypeNumber  FieldType = "number"
	TypeText    FieldType = "text"
	TypeSelect  FieldType = "select"
	TypeBoolean FieldType = "boolean"
	TypeStatus  FieldType = "status"
	TypeTags    FieldType = "tags"
)

var legalOperators = map[FieldType][]rules.Operator{
	TypeNumber: {
		rules.OpGreaterOrEqual, rules.OpLessOrEqual,
		rules.OpGreater, rules.OpLess,
		rules.OpEqual, rules.OpNotEqual,
	},
	TypeText: {
		rules.OpEqual, rules.OpNotEqual,
		rules.OpContains, rules.OpStartsWith,
		rules.OpIsEmpty, rules.OpIsNotEmpty,
	},
	TypeSelect: {
		rules.OpEqual, rules.OpNotEqual,
		rules.OpContains,
		rules.OpIsEmpty, rules.OpIsNotEmpty,
	},
	TypeBoolean: {
		rules.OpEqual, rules.OpNotEqual,
	},
}

// Operators returns the operators legal for the type.
func (t FieldType) Operators() []rules.Operator {
	switch t {
	case TypeStatus, TypeTags:
		return legalOperators[TypeSelect]
	default:
		return legalOperators[t]
	}
}

// Allows reports whether op is legal for the type.
func (t FieldType) Allows(op rules.Operator) bool {
	return slices.Contains(t.Operators(), op)
}

// Intrinsic field ids available on every application.
const (
	FieldAverageScore = "average_score"
	FieldTotalScore   = "total_score"
	FieldReviewCount  = "review_count"
	FieldStatus       = "status"
	FieldDaysInStage  = "days_in_stage"
	FieldTags         = "tags"
)

var intrinsicFields = []Field{
	{ID: FieldAverageScore, Label: "Average score", Type: TypeNumber, Intrinsic: true},
	{ID: FieldTotalScore, Label: "Total score", Type: TypeNumber, Intrinsic: true},
	{ID: FieldReviewCount, Label: "Review count", Type: TypeNumber, Intrinsic: true},
	{ID: FieldStatus, Label: "Status", Type: TypeStatus, Intrinsic: true},
	{ID: FieldDaysInStage, Label: "Days in stage", Type: TypeNumber, Intrinsic: true},
	{ID: FieldTags, Label: "Tags", Type: TypeTags, Intrinsic: true},
}

// IntrinsicFields returns the fields every catalog starts with.
func IntrinsicFields() []Field {
	return slices.Clone(intrinsicFields)
}

// Field describes one evaluable field.
type Field struct {
	ID        string           `json:"id"`
	Label     string           `json:"label"`
	Type      FieldType        `json:"type"`
	Intrinsic bool             `json:"intrinsic"`
	Section   string           `json:"section,omitempty"`
	Options   []string         `json:"options,omitempty"`
	Operators []rules.Operator `json:"operators,omitempty"`
}

// FieldCatalog is an ordered, read-only set of fields keyed by id.
type FieldCatalog struct {
	fields []Field
	index  map[string]int
}

// NewFieldCatalog builds a catalog from the intrinsic fields followed by
// the given intake form fields. A form field whose id repeats an earlier
// field is ignored.
func NewFieldCatalog(form ...Field) *FieldCatalog {
	c := &FieldCatalog{
		fields: make([]Field, 0, len(intrinsicFields)+len(form)),
		index:  make(map[string]int, len(intrinsicFields)+len(form)),
	}
	for _, f := range intrinsicFields {
		c.add(f)
	}
	for _, f := range form {
		f.Intrinsic = false
		c.add(f)
	}
	return c
}

func (c *FieldCatalog) add(f Field) {
	if f.ID == "" {
		return
	}
	if _, ok := c.index[f.ID]; ok {
		return
	}
	f.Operators = f.Type.Operators()
	c.index[f.ID] = len(c.fields)
	c.fields = append(c.fields, f)
}

// Lookup returns the field with the given id.
func (c *FieldCatalog) Lookup(id string) (Field, bool) {
	if c == nil {
		return Field{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Field{}, false
	}
	return c.fields[i], true
}

// Fields returns every field in catalog order.
func (c *FieldCatalog) Fields() []Field {
	if c == nil {
		return nil
	}
	return slices.Clone(c.fields)
}

// FormFields returns the intake form fields in catalog order.
func (c *FieldCatalog) FormFields() []Field {
	if c == nil {
		return nil
	}
	out := make([]Field, 0, len(c.fields))
	for _, f := range c.fields {
		if !f.Intrinsic {
			out = append(out, f)
		}
	}
	return out
}

// MarshalJSON writes the catalog as its ordered field list.
func (c *FieldCatalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Fields())
}
