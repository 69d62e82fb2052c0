package workflows

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/stagehand/pkg/query"
	"github.com/JaimeStill/stagehand/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "workflows", "w").
	Project("id", "ID").
	Project("name", "Name").
	Project("application_type", "ApplicationType").
	Project("default_rubric_id", "DefaultRubricID").
	Project("is_active", "IsActive").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "Name",
}

const returning = `RETURNING id, name, application_type, default_rubric_id, is_active, created_at, updated_at`

// Filters contains optional filtering criteria for workflow queries.
type Filters struct {
	Name            *string `json:"name,omitempty"`
	ApplicationType *string `json:"application_type,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("Name", f.Name).
		WhereEquals("ApplicationType", f.ApplicationType).
		WhereEquals("IsActive", f.IsActive)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	if t := values.Get("application_type"); t != "" {
		f.ApplicationType = &t
	}

	if a := values.Get("is_active"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.IsActive = &v
		}
	}

	return f
}

func scanWorkflow(s repository.Scanner) (Workflow, error) {
	var w Workflow
	err := s.Scan(
		&w.ID,
		&w.Name,
		&w.ApplicationType,
		&w.DefaultRubricID,
		&w.IsActive,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	return w, err
}
