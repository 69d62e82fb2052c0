package reviewers_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/internal/reviewers"
)

func TestCommandValidate(t *testing.T) {
	tests := []struct {
		name string
		cmd  reviewers.Command
		want error
	}{
		{"valid", reviewers.Command{Name: "Panelist", Permissions: reviewers.Permissions{CanEditScore: true}}, nil},
		{"blank name", reviewers.Command{Name: "  "}, reviewers.ErrInvalidReviewerType},
		{
			"comment only with score",
			reviewers.Command{Name: "Observer", Permissions: reviewers.Permissions{CanEditScore: true, CanCommentOnly: true}},
			reviewers.ErrPermissionConflict,
		},
		{"comment only", reviewers.Command{Name: "Observer", Permissions: reviewers.Permissions{CanCommentOnly: true}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConfigCommandNormalize(t *testing.T) {
	var cmd reviewers.ConfigCommand
	cmd.Normalize()

	if cmd.MinReviewsRequired != 1 {
		t.Errorf("min reviews = %d, want 1", cmd.MinReviewsRequired)
	}
	if cmd.FieldVisibility == nil {
		t.Error("field visibility not initialized")
	}
	if err := cmd.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	cmd.MinReviewsRequired = -2
	if err := cmd.Validate(); !errors.Is(err, reviewers.ErrInvalidConfig) {
		t.Errorf("negative minimum: Validate() = %v, want ErrInvalidConfig", err)
	}
}

func TestEngineConfigsGateReviews(t *testing.T) {
	panelist := uuid.New()
	configs := []reviewers.StageConfig{{
		StageID:            uuid.New(),
		ReviewerTypeID:     panelist,
		ReviewerTypeName:   "Panelist",
		MinReviewsRequired: 2,
		CanViewPriorScores: true,
		FieldVisibility:    map[string]bool{"ssn": false},
	}}

	got := reviewers.EngineConfigs(configs)
	want := []engine.ReviewerConfig{{
		ReviewerTypeID:     panelist.String(),
		MinReviewsRequired: 2,
		CanViewPriorScores: true,
		FieldVisibility:    map[string]bool{"ssn": false},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("EngineConfigs (-want +got):\n%s", diff)
	}

	required := engine.Requirements(got)
	one := []engine.Submission{{ReviewerID: "r1", ReviewerTypeID: panelist.String()}}
	if engine.ReviewsSatisfied(required, one) {
		t.Error("satisfied after one of two panelist reviews")
	}

	two := append(one, engine.Submission{ReviewerID: "r2", ReviewerTypeID: panelist.String()})
	if !engine.ReviewsSatisfied(required, two) {
		t.Error("not satisfied after two panelist reviews")
	}
}
