package engine

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/JaimeStill/stagehand/rules"
)

// Event is the application mutation that prompted an evaluation.
type Event struct {
	Type   rules.TriggerType `json:"type"`
	Field  string            `json:"field,omitempty"`
	Tag    string            `json:"tag,omitempty"`
	Status string            `json:"status,omitempty"`
}

// Context is everything a rule can observe about one application.
type Context struct {
	Event   Event          `json:"event"`
	Values  Values         `json:"values"`
	Reviews ReviewProgress `json:"reviews"`
}

// Rulebook maps stage ids to their rule sets.
type Rulebook map[string][]rules.Rule

// ActionBatch is the action list of the rule that matched an event.
type ActionBatch struct {
	StageID  string         `json:"stage_id"`
	RuleID   string         `json:"rule_id"`
	RuleName string         `json:"rule_name"`
	Actions  []rules.Action `json:"actions"`
}

// RuleIssue describes a rule that can never fire or cannot be applied.
type RuleIssue struct {
	StageID  string `json:"stage_id"`
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Reason   string `json:"reason"`
}

// Engine dispatches events to stage rule sets.
type Engine struct {
	logger *slog.Logger
}

// New creates an Engine. A nil logger discards output.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{logger: logger.With("system", "engine")}
}

// Dispatch evaluates the active rules of a stage in priority order and
// returns the actions of the first rule whose trigger matches the event and
// whose conditions hold. It returns nil when nothing matches.
//
// Misconfigured rules are logged and skipped.
func (e *Engine) Dispatch(book Rulebook, stageID string, fields *FieldCatalog, ctx Context) *ActionBatch {
	for _, r := range rules.Ordered(book[stageID]) {
		if err := validate(r, fields); err != nil {
			e.logger.Warn(
				"rule inactive/misconfigured",
				"stage", stageID,
				"rule", r.ID,
				"name", r.Name,
				"error", err,
			)
			continue
		}

		if !Triggered(r.Trigger, ctx) {
			continue
		}

		if !Evaluate(r.Conditions, r.Logic, fields, ctx.Values) {
			continue
		}

		e.logger.Debug("rule matched", "stage", stageID, "rule", r.ID, "event", ctx.Event.Type)
		return &ActionBatch{
			StageID:  stageID,
			RuleID:   r.ID,
			RuleName: r.Label(),
			Actions:  r.Actions,
		}
	}
	return nil
}

// Triggered reports whether a trigger responds to the context's event.
func Triggered(t rules.Trigger, ctx Context) bool {
	if t.Any() {
		return true
	}
	if t.Type != ctx.Event.Type {
		return false
	}

	switch t.Type {
	case rules.TriggerFieldChange:
		return t.Config.Field == "" || t.Config.Field == ctx.Event.Field
	case rules.TriggerTagApplied:
		return t.Config.Tag == "" || t.Config.Tag == ctx.Event.Tag
	case rules.TriggerManualStatus:
		return t.Config.Status == "" || t.Config.Status == ctx.Event.Status
	case rules.TriggerTimeElapsed:
		days, ok := toFloat(ctx.Values[FieldDaysInStage])
		return ok && days >= float64(t.Config.Days)
	case rules.TriggerAllReviewsDone:
		return ctx.Reviews.Satisfied()
	case rules.TriggerScoreThreshold, rules.TriggerReviewComplete:
		return true
	default:
		return false
	}
}

// Audit lists every rule in the book that cannot fire against fields or
// whose move targets do not resolve against targets. Issues are ordered by
// stage id, then by rule position within the stage.
func (e *Engine) Audit(book Rulebook, fields *FieldCatalog, targets Targets) []RuleIssue {
	issues := make([]RuleIssue, 0)
	for _, stageID := range slices.Sorted(maps.Keys(book)) {
		for _, r := range book[stageID] {
			err := validate(r, fields)
			if err == nil {
				err = resolvable(r.Actions, targets)
			}
			if err == nil {
				continue
			}
			issues = append(issues, RuleIssue{
				StageID:  stageID,
				RuleID:   r.ID,
				RuleName: r.Label(),
				Reason:   err.Error(),
			})
		}
	}
	return issues
}

func validate(r rules.Rule, fields *FieldCatalog) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return Check(r.Conditions, r.Logic, fields)
}

func resolvable(actions []rules.Action, targets Targets) error {
	for _, a := range actions {
		if !a.Moves() {
			continue
		}
		if _, ok := targets.Resolve(a); !ok {
			return fmt.Errorf("%w: %s %q", ErrTargetNotFound, a.Type, a.Target())
		}
	}
	return nil
}
