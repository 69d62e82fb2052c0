// Package rubrics implements scoring rubrics. Each category carries score
// bands that tile [0, max_points] without gaps.
package rubrics

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RubricType names a scoring style.
type RubricType string

const (
	TypeAnalytic    RubricType = "analytic"
	TypeHolistic    RubricType = "holistic"
	TypeSinglePoint RubricType = "single-point"
)

// Valid reports whether t is a known rubric type.
func (t RubricType) Valid() bool {
	switch t {
	case TypeAnalytic, TypeHolistic, TypeSinglePoint:
		return true
	}
	return false
}

// Rubric is a named set of scored categories.
type Rubric struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	RubricType RubricType `json:"rubric_type"`
	Categories []Category `json:"categories"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// MaxScore is the sum of category maximums.
func (r Rubric) MaxScore() int {
	total := 0
	for _, c := range r.Categories {
		total += c.MaxPoints
	}
	return total
}

// Category is one scored criterion.
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MaxPoints   int    `json:"max_points"`
	Bands       []Band `json:"bands"`
}

// Command carries the data to create or update a rubric.
type Command struct {
	Name       string     `json:"name"`
	RubricType RubricType `json:"rubric_type"`
	Categories []Category `json:"categories"`
}

// Normalize trims names, defaults the type and fills missing bands.
func (c *Command) Normalize() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.RubricType == "" {
		c.RubricType = TypeAnalytic
	}
	if c.Categories == nil {
		c.Categories = []Category{}
	}

	for i := range c.Categories {
		cat := &c.Categories[i]
		cat.Name = strings.TrimSpace(cat.Name)
		if len(cat.Bands) > 0 {
			continue
		}
		bands, err := DefaultBands(cat.MaxPoints, DefaultLabels)
		if err != nil {
			return fmt.Errorf("category %q: %w", cat.Name, err)
		}
		cat.Bands = bands
	}
	return nil
}

// Validate checks the rubric shape and every category's bands.
func (c Command) Validate() error {
	if c.Name == "" {
		return ErrInvalidRubric
	}
	if !c.RubricType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, c.RubricType)
	}

	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("%w: category name required", ErrInvalidRubric)
		}
		if seen[cat.Name] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidRubric, cat.Name)
		}
		seen[cat.Name] = true

		if err := ValidateBands(cat.Bands, cat.MaxPoints); err != nil {
			return fmt.Errorf("category %q: %w", cat.Name, err)
		}
	}
	return nil
}

// Reconcile re-derives the bands of every category whose max_points changed
// while its bands still describe the previous maximum.
func Reconcile(prev, next []Category) ([]Category, error) {
	out := slices.Clone(next)
	for i := range out {
		cat := &out[i]
		j := slices.IndexFunc(prev, func(p Category) bool { return p.Name == cat.Name })
		if j < 0 || prev[j].MaxPoints == cat.MaxPoints {
			continue
		}
		if ValidateBands(cat.Bands, prev[j].MaxPoints) != nil {
			continue
		}
		bands, err := RescaleBands(cat.Bands, prev[j].MaxPoints, cat.MaxPoints)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", cat.Name, err)
		}
		cat.Bands = bands
	}
	return out, nil
}
