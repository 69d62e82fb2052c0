package engine

// Submission is one submitted review of an application in its current stage.
type Submission struct {
	ReviewerID     string `json:"reviewer_id"`
	ReviewerTypeID string `json:"reviewer_type_id"`
}

// ReviewProgress pairs the per-role minimums of a stage with the reviews
// submitted so far.
type ReviewProgress struct {
	Required  map[string]int `json:"required"`
	Submitted []Submission   `json:"submitted"`
}

// Satisfied reports whether every role has met its minimum.
func (p ReviewProgress) Satisfied() bool {
	return ReviewsSatisfied(p.Required, p.Submitted)
}

// ReviewsSatisfied reports whether, for every role in required, the number of
// distinct reviewers of that role who submitted is at least the role minimum.
// Roles are counted independently. No required roles means nothing to wait for
// and reports false.
func ReviewsSatisfied(required map[string]int, submitted []Submission) bool {
	if len(required) == 0 {
		return false
	}

	counts := distinctReviewers(submitted)
	for role, need := range required {
		if counts[role] < max(need, 1) {
			return false
		}
	}
	return true
}

// Requirements collects the per-role minimums from stage reviewer configs.
func Requirements(configs []ReviewerConfig) map[string]int {
	out := make(map[string]int, len(configs))
	for _, c := range configs {
		out[c.ReviewerTypeID] = max(c.MinReviewsRequired, 1)
	}
	return out
}

func distinctReviewers(submitted []Submission) map[string]int {
	seen := make(map[Submission]bool, len(submitted))
	counts := make(map[string]int)
	for _, s := range submitted {
		if seen[s] {
			continue
		}
		seen[s] = true
		counts[s.ReviewerTypeID]++
	}
	return counts
}
