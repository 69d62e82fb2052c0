// Package forms stores the intake form definition of each application type
// and derives the field catalog automation rules are evaluated against.
package forms

import (
	"fmt"
	"strings"
	"time"

	"github.com/JaimeStill/stagehand/engine"
)

// InputType is the widget an intake form field is rendered with.
type InputType string

const (
	InputText        InputType = "text"
	InputTextarea    InputType = "textarea"
	InputEmail       InputType = "email"
	InputPhone       InputType = "phone"
	InputDate        InputType = "date"
	InputNumber      InputType = "number"
	InputCurrency    InputType = "currency"
	InputSelect      InputType = "select"
	InputRadio       InputType = "radio"
	InputMultiSelect InputType = "multiselect"
	InputCheckbox    InputType = "checkbox"
	InputFile        InputType = "file"
)

// FieldType maps the input widget to the value type rules compare against.
// Unknown input types evaluate as text.
func (t InputType) FieldType() engine.FieldType {
	switch t {
	case InputNumber, InputCurrency:
		return engine.TypeNumber
	case InputSelect, InputRadio, InputMultiSelect:
		return engine.TypeSelect
	case InputCheckbox:
		return engine.TypeBoolean
	default:
		return engine.TypeText
	}
}

func (t InputType) choice() bool {
	switch t {
	case InputSelect, InputRadio, InputMultiSelect:
		return true
	}
	return false
}

// Form is the intake form of one application type.
type Form struct {
	ApplicationType string    `json:"application_type"`
	Fields          []Field   `json:"fields"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Field is one intake form question.
type Field struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	InputType InputType `json:"input_type"`
	Section   string    `json:"section,omitempty"`
	Options   []string  `json:"options,omitempty"`
	Required  bool      `json:"required,omitempty"`
	PII       bool      `json:"pii,omitempty"`
}

// Catalog builds the evaluable field catalog for the form.
func (f Form) Catalog() *engine.FieldCatalog {
	fields := make([]engine.Field, len(f.Fields))
	for i, ff := range f.Fields {
		fields[i] = engine.Field{
			ID:      ff.ID,
			Label:   ff.Label,
			Type:    ff.InputType.FieldType(),
			Section: ff.Section,
			Options: ff.Options,
		}
	}
	return engine.NewFieldCatalog(fields...)
}

// PIIFields returns the ids of fields flagged as personal data.
func (f Form) PIIFields() []string {
	out := []string{}
	for _, ff := range f.Fields {
		if ff.PII {
			out = append(out, ff.ID)
		}
	}
	return out
}

// Command carries the field list that replaces a form.
type Command struct {
	Fields []Field `json:"fields"`
}

// Validate checks field ids are present, unique and distinct from the
// intrinsic fields, and that choice inputs list their options.
func (c Command) Validate() error {
	intrinsic := engine.NewFieldCatalog()
	seen := make(map[string]bool, len(c.Fields))

	for i, f := range c.Fields {
		id := strings.TrimSpace(f.ID)
		if id == "" {
			return fmt.Errorf("%w: field %d has no id", ErrInvalidForm, i)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidForm, id)
		}
		if _, ok := intrinsic.Lookup(id); ok {
			return fmt.Errorf("%w: %q is reserved", ErrInvalidForm, id)
		}
		if f.InputType.choice() && len(f.Options) == 0 {
			return fmt.Errorf("%w: %q needs options", ErrInvalidForm, id)
		}
		seen[id] = true
	}
	return nil
}
