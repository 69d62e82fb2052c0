package rules_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/JaimeStill/stagehand/rules"
)

func sampleRules() []rules.Rule {
	return []rules.Rule{
		{
			ID:      "r1",
			Name:    "advance strong applicants",
			Trigger: rules.Trigger{Type: rules.TriggerScoreThreshold},
			Conditions: []rules.Condition{
				{Field: "average_score", Operator: rules.OpGreaterOrEqual, Value: "80"},
			},
			Logic:    rules.LogicAnd,
			Actions:  []rules.Action{rules.MoveToStage("S2")},
			Active:   true,
			Priority: 1,
		},
		{
			ID:      "r2",
			Name:    "stale reminder",
			Trigger: rules.Trigger{Type: rules.TriggerTimeElapsed, Config: rules.TriggerConfig{Days: 14}},
			Logic:   rules.LogicOr,
			Actions: []rules.Action{
				rules.AddTags("stale"),
				rules.SendEmail(rules.Email{Template: "reminder", Subject: "Pending review"}),
			},
			Active:   false,
			Priority: 2,
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := sampleRules()

	raw, err := rules.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if raw == "" || raw[0] != '[' {
		t.Fatalf("Encode should write a JSON array, got %q", raw)
	}

	out, err := rules.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if diff := cmp.Diff(in, out, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeEmpty(t *testing.T) {
	raw, err := rules.Encode(nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if raw != "" {
		t.Errorf("Encode(nil) = %q, want empty", raw)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []rules.Rule
		wantErr error
	}{
		{
			name: "empty",
			raw:  "   ",
			want: nil,
		},
		{
			name: "single action key and default active",
			raw:  `[{"id":"a","conditions":[{"field":"review_count","operator":">","value":2}],"conditionLogic":"AND","action":{"action_type":"add_tags","tags":["ready"]}}]`,
			want: []rules.Rule{
				{
					ID: "a",
					Conditions: []rules.Condition{
						{Field: "review_count", Operator: rules.OpGreater, Value: "2"},
					},
					Logic:   rules.LogicAnd,
					Actions: []rules.Action{rules.AddTags("ready")},
					Active:  true,
				},
			},
		},
		{
			name: "explicit inactive",
			raw:  `[{"id":"b","isActive":false,"actions":[{"action_type":"move_to_group","target_group_id":"G"}]}]`,
			want: []rules.Rule{
				{ID: "b", Actions: []rules.Action{rules.MoveToGroup("G")}},
			},
		},
		{
			name: "bare trigger string",
			raw:  `[{"id":"c","trigger":"tag_applied","actions":[{"action_type":"remove_tags","tags":["x"]}]}]`,
			want: []rules.Rule{
				{
					ID:      "c",
					Trigger: rules.Trigger{Type: rules.TriggerTagApplied},
					Actions: []rules.Action{rules.RemoveTags("x")},
					Active:  true,
				},
			},
		},
		{
			name: "single object",
			raw:  `{"id":"d","actions":[{"action_type":"move_to_stage","target_stage_id":"S3"}]}`,
			want: []rules.Rule{
				{ID: "d", Actions: []rules.Action{rules.MoveToStage("S3")}, Active: true},
			},
		},
		{
			name:    "malformed json",
			raw:     `[{"id":`,
			wantErr: rules.ErrMalformedRules,
		},
		{
			name: "unparsable legacy is absent",
			raw:  "move everything somewhere",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rules.Decode(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Decode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpgrade(t *testing.T) {
	raw := "if average_score >= 80 then move to stage S2"

	upgraded, changed, err := rules.Upgrade(raw)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if !changed {
		t.Fatal("legacy text should be rewritten")
	}

	rs, err := rules.Decode(upgraded)
	if err != nil {
		t.Fatalf("Decode upgraded: %v", err)
	}
	if len(rs) != 1 || rs[0].Actions[0].TargetStageID != "S2" {
		t.Errorf("upgraded rules = %+v", rs)
	}

	_, changed, err = rules.Upgrade(upgraded)
	if err != nil {
		t.Fatalf("Upgrade current: %v", err)
	}
	if changed {
		t.Error("current format should be stable under Upgrade")
	}
}

func TestValueUnmarshal(t *testing.T) {
	tests := []struct {
		json string
		want rules.Value
	}{
		{`"80"`, "80"},
		{`80`, "80"},
		{`80.5`, "80.5"},
		{`true`, "true"},
		{`null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.json, func(t *testing.T) {
			var v rules.Value
			if err := json.Unmarshal([]byte(tt.json), &v); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if v != tt.want {
				t.Errorf("got %q, want %q", v, tt.want)
			}
		})
	}

	var v rules.Value
	if err := json.Unmarshal([]byte(`["a"]`), &v); err == nil {
		t.Error("expected error for array operand")
	}
}

func TestRuleValidate(t *testing.T) {
	valid := sampleRules()[0]

	tests := []struct {
		name    string
		mutate  func(r *rules.Rule)
		wantErr error
	}{
		{"valid", func(r *rules.Rule) {}, nil},
		{"bad logic", func(r *rules.Rule) { r.Logic = "XOR" }, rules.ErrInvalidLogic},
		{"bad trigger", func(r *rules.Rule) { r.Trigger.Type = "sometimes" }, rules.ErrInvalidTrigger},
		{"time elapsed without days", func(r *rules.Rule) {
			r.Trigger = rules.Trigger{Type: rules.TriggerTimeElapsed}
		}, rules.ErrInvalidTrigger},
		{"unknown operator", func(r *rules.Rule) { r.Conditions[0].Operator = "~=" }, rules.ErrInvalidOperator},
		{"empty field", func(r *rules.Rule) { r.Conditions[0].Field = "" }, rules.ErrInvalidCondition},
		{"no actions", func(r *rules.Rule) { r.Actions = nil }, rules.ErrInvalidAction},
		{"unknown action", func(r *rules.Rule) { r.Actions[0].Type = "teleport" }, rules.ErrInvalidAction},
		{"missing target", func(r *rules.Rule) { r.Actions[0].TargetStageID = "" }, rules.ErrMissingTarget},
		{"tags without tags", func(r *rules.Rule) { r.Actions[0] = rules.AddTags() }, rules.ErrMissingTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			r.Conditions = append([]rules.Condition(nil), valid.Conditions...)
			r.Actions = append([]rules.Action(nil), valid.Actions...)
			tt.mutate(&r)

			err := r.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOrdered(t *testing.T) {
	rs := []rules.Rule{
		{ID: "c", Priority: 5, Active: true},
		{ID: "a", Priority: 1, Active: true},
		{ID: "off", Priority: 0, Active: false},
		{ID: "b", Priority: 1, Active: true},
	}

	got := rules.Ordered(rs)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}

	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if rs[0].ID != "c" {
		t.Error("Ordered must not reorder its input")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    rules.Color
		wantErr bool
	}{
		{"", "gray", false},
		{"Blue", "blue", false},
		{"#A1B2C3", "#a1b2c3", false},
		{"#abc", "", true},
		{"chartreuse", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := rules.ParseColor(tt.in)
			if tt.wantErr {
				if !errors.Is(err, rules.ErrInvalidColor) {
					t.Fatalf("err = %v, want ErrInvalidColor", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateStatuses(t *testing.T) {
	approve := rules.CustomStatus{Name: "Approve", IsPrimary: true, Actions: []rules.Action{rules.MoveToStage("S3")}}
	reject := rules.CustomStatus{Name: "Reject", Actions: []rules.Action{rules.MoveToGroup("Rejected")}}

	if err := rules.ValidateStatuses([]rules.CustomStatus{approve, reject}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		statuses []rules.CustomStatus
	}{
		{"duplicate", []rules.CustomStatus{approve, approve}},
		{"two primaries", []rules.CustomStatus{approve, {Name: "Fast track", IsPrimary: true}}},
		{"blank name", []rules.CustomStatus{{Name: " "}}},
		{"bad action", []rules.CustomStatus{{Name: "Hold", Actions: []rules.Action{{Type: rules.ActionMoveToGroup}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := rules.ValidateStatuses(tt.statuses); err == nil {
				t.Error("expected error")
			}
		})
	}

	got, ok := rules.FindStatus([]rules.CustomStatus{approve, reject}, "Reject")
	if !ok || got.Name != "Reject" {
		t.Errorf("FindStatus = %+v, %v", got, ok)
	}
}
