package rubrics

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/stagehand/pkg/query"
	"github.com/JaimeStill/stagehand/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "rubrics", "r").
	Project("id", "ID").
	Project("name", "Name").
	Project("rubric_type", "RubricType").
	Project("categories", "Categories").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "Name",
}

const returning = `RETURNING id, name, rubric_type, categories, created_at, updated_at`

// Filters contains optional filtering criteria for rubric queries.
type Filters struct {
	Name       *string     `json:"name,omitempty"`
	RubricType *RubricType `json:"rubric_type,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("Name", f.Name).
		WhereEquals("RubricType", f.RubricType)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	if t := values.Get("rubric_type"); t != "" {
		rt := RubricType(t)
		f.RubricType = &rt
	}

	return f
}

func scanRubric(s repository.Scanner) (Rubric, error) {
	var (
		r          Rubric
		categories []byte
	)
	err := s.Scan(
		&r.ID,
		&r.Name,
		&r.RubricType,
		&categories,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return r, err
	}

	r.Categories = []Category{}
	if len(categories) > 0 {
		if err := json.Unmarshal(categories, &r.Categories); err != nil {
			return r, fmt.Errorf("decode categories: %w", err)
		}
	}
	return r, nil
}
