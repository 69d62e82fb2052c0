package notify

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/JaimeStill/stagehand/internal/applications"
)

type renderer struct {
	set *pongo2.TemplateSet
}

func newRenderer(dir string) (*renderer, error) {
	if dir == "" {
		return &renderer{}, nil
	}
	loader, err := pongo2.NewLocalFileSystemLoader(dir)
	if err != nil {
		return nil, fmt.Errorf("template loader: %w", err)
	}
	return &renderer{set: pongo2.NewSet("notify", loader)}, nil
}

// render executes tmpl against ctx. A bare file name such as
// "accepted.html" names a template in the template directory; anything
// else is an inline template.
func (r *renderer) render(tmpl string, ctx pongo2.Context) (string, error) {
	if !strings.Contains(tmpl, "{") && r.named(tmpl) {
		tpl, err := r.set.FromCache(tmpl)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, tmpl, err)
		}
		return execute(tpl, ctx)
	}

	if !strings.Contains(tmpl, "{{") && !strings.Contains(tmpl, "{%") {
		return tmpl, nil
	}

	tpl, err := pongo2.FromString(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return execute(tpl, ctx)
}

func (r *renderer) named(tmpl string) bool {
	if r.set == nil || tmpl == "" || strings.ContainsAny(tmpl, " \t\n") {
		return false
	}
	if strings.Contains(tmpl, "..") || filepath.IsAbs(tmpl) {
		return false
	}
	return filepath.Ext(tmpl) != ""
}

func execute(tpl *pongo2.Template, ctx pongo2.Context) (string, error) {
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return out, nil
}

func templateContext(a applications.Application, stageName string) pongo2.Context {
	return pongo2.Context{
		"application": map[string]any{
			"id":              a.ID.String(),
			"applicant_name":  a.ApplicantName,
			"applicant_email": a.ApplicantEmail,
			"status":          a.Status,
			"tags":            a.Tags,
			"data":            a.Data,
		},
		"stage":  stageName,
		"status": a.Status,
		"tags":   a.Tags,
	}
}
