package engine

import (
	"slices"

	"github.com/JaimeStill/stagehand/rules"
)

// StagePrivacy is the PII redaction setting of a stage.
type StagePrivacy struct {
	HidePII         bool     `json:"hide_pii"`
	HiddenPIIFields []string `json:"hidden_pii_fields"`
}

// ReviewerConfig is the configuration of one reviewer type within a stage.
type ReviewerConfig struct {
	ReviewerTypeID       string          `json:"reviewer_type_id"`
	MinReviewsRequired   int             `json:"min_reviews_required"`
	CanViewPriorScores   bool            `json:"can_view_prior_scores"`
	CanViewPriorComments bool            `json:"can_view_prior_comments"`
	FieldVisibility      map[string]bool `json:"field_visibility_config"`
}

// PriorAccess gates what a reviewer sees of reviews left in earlier stages.
type PriorAccess struct {
	Scores   bool `json:"scores"`
	Comments bool `json:"comments"`
}

// ResolveVisibleFields returns the intake field ids a reviewer may see in a
// stage, in catalog order. Every form field starts visible; hidden PII fields
// are removed when the stage hides PII, then any field the reviewer config
// marks false. A nil config applies only the stage redaction.
func ResolveVisibleFields(stage StagePrivacy, config *ReviewerConfig, catalog *FieldCatalog) []string {
	form := catalog.FormFields()
	visible := make([]string, 0, len(form))

	for _, f := range form {
		if stage.HidePII && slices.Contains(stage.HiddenPIIFields, f.ID) {
			continue
		}
		if config != nil {
			if show, ok := config.FieldVisibility[f.ID]; ok && !show {
				continue
			}
		}
		visible = append(visible, f.ID)
	}
	return visible
}

// ResolvePriorReviewAccess reports whether prior-stage scores and comments
// are visible under config. A nil config grants neither.
func ResolvePriorReviewAccess(config *ReviewerConfig) PriorAccess {
	if config == nil {
		return PriorAccess{}
	}
	return PriorAccess{
		Scores:   config.CanViewPriorScores,
		Comments: config.CanViewPriorComments,
	}
}

// CanViewStage applies a parsed stage visibility restriction. An empty
// allowed list leaves the stage visible to every reviewer type.
func CanViewStage(allowed []string, reviewerType string) bool {
	if len(allowed) == 0 {
		return true
	}
	return slices.Contains(allowed, reviewerType)
}

// CanViewStageRule parses a stored visibility restriction and applies it.
// A malformed restriction hides the stage.
func CanViewStageRule(restriction, reviewerType string) bool {
	allowed, err := rules.ParseVisibility(restriction)
	if err != nil {
		return false
	}
	return CanViewStage(allowed, reviewerType)
}

// Redact returns a copy of data holding only the visible field ids.
func Redact(data map[string]any, visible []string) map[string]any {
	out := make(map[string]any, len(visible))
	for _, id := range visible {
		if v, ok := data[id]; ok {
			out[id] = v
		}
	}
	return out
}
