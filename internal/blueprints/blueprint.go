// Package blueprints loads whole workflows from YAML: the workflow, its
// groups, and a pipeline of stages with their statuses, tags, stage groups,
// visibility and rules. Rule and status move targets are written as names
// and resolved to ids when the blueprint is applied.
package blueprints

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/stagehand/internal/groups"
	"github.com/JaimeStill/stagehand/internal/stages"
	"github.com/JaimeStill/stagehand/rules"
)

// Blueprint is the YAML document shape.
type Blueprint struct {
	Workflow WorkflowSpec `yaml:"workflow"`
	Groups   []GroupSpec  `yaml:"groups"`
	Stages   []StageSpec  `yaml:"stages"`
}

type WorkflowSpec struct {
	Name            string `yaml:"name"`
	ApplicationType string `yaml:"application_type"`
	Active          bool   `yaml:"active"`
}

// GroupSpec declares a workflow group or a stage group.
type GroupSpec struct {
	Name  string      `yaml:"name"`
	Color rules.Color `yaml:"color"`
	Icon  string      `yaml:"icon"`
}

// StageSpec declares one pipeline stage. Statuses and Rules use the JSON
// wire shape of rules.CustomStatus and rules.Rule.
type StageSpec struct {
	Name            string            `yaml:"name"`
	Type            stages.StageType  `yaml:"type"`
	Color           rules.Color       `yaml:"color"`
	DeadlineDays    *int              `yaml:"deadline_days"`
	HidePII         bool              `yaml:"hide_pii"`
	HiddenPIIFields []string          `yaml:"hidden_pii_fields"`
	Tags            []rules.TagOption `yaml:"tags"`
	Visibility      []string          `yaml:"visibility"`
	StageGroups     []GroupSpec       `yaml:"stage_groups"`
	Statuses        []map[string]any  `yaml:"statuses"`
	Rules           []map[string]any  `yaml:"rules"`
}

// Settings converts the spec to stage settings with the given statuses.
func (s StageSpec) Settings(statuses []rules.CustomStatus) stages.Settings {
	return stages.Settings{
		Name:            s.Name,
		StageType:       s.Type,
		Color:           s.Color,
		CustomStatuses:  statuses,
		CustomTags:      s.Tags,
		HidePII:         s.HidePII,
		HiddenPIIFields: s.HiddenPIIFields,
		Timeline:        stages.Timeline{DeadlineDays: s.DeadlineDays},
	}
}

// Parse decodes and validates a blueprint.
func Parse(data []byte) (*Blueprint, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}

	var bp Blueprint
	if err := yaml.Unmarshal(data, &bp); err != nil {
		return nil, fmt.Errorf("decode blueprint: %w", err)
	}
	if err := bp.Validate(); err != nil {
		return nil, err
	}
	return &bp, nil
}

// Read parses a blueprint from r.
func Read(r io.Reader) (*Blueprint, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read blueprint: %w", err)
	}
	return Parse(data)
}

// Load parses the blueprint file at path.
func Load(path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blueprint %s: %w", path, err)
	}
	bp, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bp, nil
}

// Validate checks names are unique within their kind and that every move
// target names a declared stage, group, stage group or system group.
func (b *Blueprint) Validate() error {
	if strings.TrimSpace(b.Workflow.Name) == "" || strings.TrimSpace(b.Workflow.ApplicationType) == "" {
		return fmt.Errorf("%w: workflow name and application_type required", ErrInvalidBlueprint)
	}
	if len(b.Stages) == 0 {
		return fmt.Errorf("%w: at least one stage required", ErrInvalidBlueprint)
	}

	names, err := b.names()
	if err != nil {
		return err
	}

	for _, st := range b.Stages {
		settings, rs, err := st.decode()
		if err != nil {
			return err
		}

		settings.Normalize()
		if err := settings.Validate(); err != nil {
			return fmt.Errorf("stage %q: %w", st.Name, err)
		}

		for _, s := range settings.CustomStatuses {
			if err := names.check(s.Actions); err != nil {
				return fmt.Errorf("stage %q status %q: %w", st.Name, s.Name, err)
			}
		}
		for i, r := range rs {
			if err := r.Validate(); err != nil {
				return fmt.Errorf("stage %q rule %d: %w", st.Name, i, err)
			}
			if err := names.check(r.Actions); err != nil {
				return fmt.Errorf("stage %q rule %q: %w", st.Name, r.Label(), err)
			}
		}
	}
	return nil
}

// namespace holds the declared names a move target may reference.
type namespace struct {
	stages      []string
	groups      []string
	stageGroups []string
}

func (b *Blueprint) names() (namespace, error) {
	var ns namespace

	for _, g := range groups.SystemGroups {
		ns.groups = append(ns.groups, g.Name)
	}
	for _, g := range b.Groups {
		if err := unique(ns.groups, g.Name, "group"); err != nil {
			return ns, err
		}
		if _, err := rules.ParseColor(string(g.Color)); err != nil {
			return ns, fmt.Errorf("group %q: %w", g.Name, err)
		}
		ns.groups = append(ns.groups, g.Name)
	}

	for _, st := range b.Stages {
		if err := unique(ns.stages, st.Name, "stage"); err != nil {
			return ns, err
		}
		ns.stages = append(ns.stages, st.Name)

		for _, g := range st.StageGroups {
			if err := unique(ns.stageGroups, g.Name, "stage group"); err != nil {
				return ns, err
			}
			if _, err := rules.ParseColor(string(g.Color)); err != nil {
				return ns, fmt.Errorf("stage group %q: %w", g.Name, err)
			}
			ns.stageGroups = append(ns.stageGroups, g.Name)
		}
	}
	return ns, nil
}

func (ns namespace) check(actions []rules.Action) error {
	for _, a := range actions {
		var declared []string
		switch a.Type {
		case rules.ActionMoveToStage:
			declared = ns.stages
		case rules.ActionMoveToGroup:
			declared = ns.groups
		case rules.ActionMoveToStageGroup:
			declared = ns.stageGroups
		default:
			continue
		}
		if !slices.Contains(declared, a.Target()) {
			return fmt.Errorf("%w: %s %q", ErrUnresolvedTarget, a.Type, a.Target())
		}
	}
	return nil
}

func unique(seen []string, name, kind string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: %s name required", ErrInvalidBlueprint, kind)
	}
	if slices.Contains(seen, name) {
		return fmt.Errorf("%w: %s %q", ErrDuplicateName, kind, name)
	}
	return nil
}

// decode reads the statuses and rules of a stage through their JSON wire form.
func (s StageSpec) decode() (stages.Settings, []rules.Rule, error) {
	statuses, err := viaJSON[[]rules.CustomStatus](s.Statuses)
	if err != nil {
		return stages.Settings{}, nil, fmt.Errorf("stage %q statuses: %w", s.Name, err)
	}
	rs, err := viaJSON[[]rules.Rule](s.Rules)
	if err != nil {
		return stages.Settings{}, nil, fmt.Errorf("stage %q rules: %w", s.Name, err)
	}
	return s.Settings(statuses), rs, nil
}

func viaJSON[T any](v any) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidBlueprint, err)
	}
	return out, nil
}
