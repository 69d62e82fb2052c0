package forms

import (
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/stagehand/pkg/query"
	"github.com/JaimeStill/stagehand/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "intake_forms", "f").
	Project("application_type", "ApplicationType").
	Project("fields", "Fields").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "ApplicationType",
}

const returning = `RETURNING application_type, fields, updated_at`

func scanForm(s repository.Scanner) (Form, error) {
	var (
		f      Form
		fields []byte
	)
	if err := s.Scan(&f.ApplicationType, &fields, &f.UpdatedAt); err != nil {
		return f, err
	}

	f.Fields = []Field{}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &f.Fields); err != nil {
			return f, fmt.Errorf("decode form fields: %w", err)
		}
	}
	return f, nil
}
