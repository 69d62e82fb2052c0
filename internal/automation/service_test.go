package automation_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/internal/applications"
	"github.com/JaimeStill/stagehand/internal/automation"
	"github.com/JaimeStill/stagehand/internal/reviewers"
	"github.com/JaimeStill/stagehand/internal/workflows"
	"github.com/JaimeStill/stagehand/rules"
)

func rule(name string, trigger rules.Trigger, actions ...rules.Action) rules.Rule {
	return rules.Rule{
		ID:      uuid.NewString(),
		Name:    name,
		Trigger: trigger,
		Actions: actions,
		Active:  true,
	}
}

func when(r rules.Rule, conditions ...rules.Condition) rules.Rule {
	r.Conditions = conditions
	return r
}

func ptr[T any](v T) *T { return &v }

func daysAgo(n int) time.Time {
	return time.Now().Add(-time.Duration(n) * 24 * time.Hour)
}

func TestSetStatusRunsMatchedRule(t *testing.T) {
	w := newWorld()
	screening := w.addStage(t, "Screening", rule(
		"advance approved",
		rules.Trigger{Type: rules.TriggerManualStatus, Config: rules.TriggerConfig{Status: "Approved"}},
		rules.MoveToStage("Interview"),
		rules.AddTags("shortlisted"),
	))
	interview := w.addStage(t, "Interview")
	a := w.addApplication(screening, daysAgo(3))

	sys := w.service()

	out, err := sys.SetStatus(context.Background(), a.ID, automation.StatusCommand{Status: "Approved"})
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if !out.Matched || out.RuleName != "advance approved" {
		t.Errorf("matched = %v rule = %q", out.Matched, out.RuleName)
	}

	got := w.app(a.ID)
	if got.StageID == nil || *got.StageID != interview.ID {
		t.Errorf("stage = %v, want %s", got.StageID, interview.ID)
	}
	if got.Status != "Approved" {
		t.Errorf("status = %q", got.Status)
	}
	if diff := cmp.Diff([]string{"shortlisted"}, got.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
	if !got.StageEnteredAt.After(a.StageEnteredAt) {
		t.Error("stage clock not restarted by the move")
	}

	t.Run("other status saves without a rule", func(t *testing.T) {
		b := w.addApplication(screening, daysAgo(1))

		out, err := sys.SetStatus(context.Background(), b.ID, automation.StatusCommand{Status: "On hold"})
		if err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
		if out.Matched {
			t.Errorf("unexpected match %q", out.RuleName)
		}

		got := w.app(b.ID)
		if got.Status != "On hold" || *got.StageID != screening.ID {
			t.Errorf("got status %q stage %v", got.Status, got.StageID)
		}
	})
}

func TestUpdateDataRaisesFieldChange(t *testing.T) {
	w := newWorld()
	st := w.addStage(t, "Screening", when(
		rule(
			"honors",
			rules.Trigger{Type: rules.TriggerFieldChange, Config: rules.TriggerConfig{Field: "gpa"}},
			rules.AddTags("honors"),
		),
		rules.Condition{Field: "gpa", Operator: rules.OpGreaterOrEqual, Value: "3.5"},
	))
	a := w.addApplication(st, daysAgo(1))
	sys := w.service()
	ctx := context.Background()

	out, err := sys.UpdateData(ctx, a.ID, automation.DataCommand{Data: map[string]any{"major": "Chemistry"}})
	if err != nil {
		t.Fatalf("UpdateData major: %v", err)
	}
	if out.Matched {
		t.Error("major change matched a gpa rule")
	}
	if got := w.app(a.ID).Data["major"]; got != "Chemistry" {
		t.Errorf("major = %v", got)
	}

	out, err = sys.UpdateData(ctx, a.ID, automation.DataCommand{Data: map[string]any{"gpa": 3.8}})
	if err != nil {
		t.Fatalf("UpdateData gpa: %v", err)
	}
	if !out.Matched || out.Event == nil || out.Event.Field != "gpa" {
		t.Errorf("outcome = %+v", out)
	}
	if diff := cmp.Diff([]string{"honors"}, w.app(a.ID).Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}

	saves := w.saves
	out, err = sys.UpdateData(ctx, a.ID, automation.DataCommand{Data: map[string]any{"gpa": 3.8}})
	if err != nil {
		t.Fatalf("UpdateData repeat: %v", err)
	}
	if out.Matched || w.saves != saves {
		t.Errorf("unchanged data matched=%v saves=%d, want no match and %d saves", out.Matched, w.saves, saves)
	}

	if _, err := sys.UpdateData(ctx, a.ID, automation.DataCommand{}); !errors.Is(err, automation.ErrInvalidCommand) {
		t.Errorf("empty data err = %v", err)
	}
}

func TestSubmitReviewWaitsForAllReviewers(t *testing.T) {
	tests := []struct {
		name      string
		second    float64
		wantStage bool
	}{
		{"average meets bar", 70, true},
		{"average below bar", 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorld()
			interview := w.addStage(t, "Interview")
			rejected := w.addGroup("Rejected")

			done := rules.Trigger{Type: rules.TriggerAllReviewsDone}
			pass := when(rule("pass", done, rules.MoveToStage(interview.ID.String())),
				rules.Condition{Field: engine.FieldAverageScore, Operator: rules.OpGreaterOrEqual, Value: "80"})
			fail := when(rule("fail", done, rules.MoveToGroup("Rejected")),
				rules.Condition{Field: engine.FieldAverageScore, Operator: rules.OpLess, Value: "80"})
			fail.Priority = 1

			screening := w.addStage(t, "Screening", pass, fail)
			panelist := w.addType("Panelist")
			w.configs = []reviewers.StageConfig{{
				StageID:            screening.ID,
				ReviewerTypeID:     panelist.ID,
				ReviewerTypeName:   panelist.Name,
				MinReviewsRequired: 2,
			}}

			a := w.addApplication(screening, daysAgo(2))
			sys := w.service()
			ctx := context.Background()

			first, err := sys.SubmitReview(ctx, a.ID, applications.ReviewCommand{
				ReviewerID: "p1", ReviewerTypeID: panelist.ID, Score: ptr(90.0),
			})
			if err != nil {
				t.Fatalf("first review: %v", err)
			}
			if first.Matched {
				t.Fatalf("matched %q with one of two reviews", first.RuleName)
			}
			if w.saves != 0 {
				t.Errorf("saves = %d after unmatched review, want 0", w.saves)
			}

			second, err := sys.SubmitReview(ctx, a.ID, applications.ReviewCommand{
				ReviewerID: "p2", ReviewerTypeID: panelist.ID, Score: ptr(tt.second),
			})
			if err != nil {
				t.Fatalf("second review: %v", err)
			}
			if !second.Matched || second.Event.Type != rules.TriggerAllReviewsDone {
				t.Fatalf("outcome = %+v", second)
			}

			got := w.app(a.ID)
			if tt.wantStage {
				if got.StageID == nil || *got.StageID != interview.ID {
					t.Errorf("stage = %v, want interview", got.StageID)
				}
			} else {
				if got.GroupID == nil || *got.GroupID != rejected.ID || got.StageID != nil {
					t.Errorf("location = stage %v group %v, want rejected group", got.StageID, got.GroupID)
				}
			}
		})
	}
}

func TestReviewCompleteTakesPrecedence(t *testing.T) {
	w := newWorld()
	st := w.addStage(t, "Screening",
		rule("tag reviewed", rules.Trigger{Type: rules.TriggerReviewComplete}, rules.AddTags("reviewed")),
		rule("tag scored", rules.Trigger{Type: rules.TriggerScoreThreshold}, rules.AddTags("scored")),
	)
	panelist := w.addType("Panelist")
	a := w.addApplication(st, daysAgo(1))

	out, err := w.service().SubmitReview(context.Background(), a.ID, applications.ReviewCommand{
		ReviewerID: "p1", ReviewerTypeID: panelist.ID, Score: ptr(75.0),
	})
	if err != nil {
		t.Fatalf("SubmitReview: %v", err)
	}
	if out.RuleName != "tag reviewed" {
		t.Errorf("rule = %q, want tag reviewed", out.RuleName)
	}
	if diff := cmp.Diff([]string{"reviewed"}, w.app(a.ID).Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

func TestConflictRetry(t *testing.T) {
	w := newWorld()
	st := w.addStage(t, "Screening")
	a := w.addApplication(st, daysAgo(1))
	sys := w.service()

	w.conflicts = 1
	out, err := sys.SetStatus(context.Background(), a.ID, automation.StatusCommand{Status: "Approved"})
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if out.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", out.Attempts)
	}
	if got := w.app(a.ID); got.Status != "Approved" || got.Version != 3 {
		t.Errorf("status %q version %d, want Approved 3", got.Status, got.Version)
	}

	w.conflicts = 10
	_, err = sys.SetStatus(context.Background(), a.ID, automation.StatusCommand{Status: "Declined"})
	if !errors.Is(err, applications.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
	if got := w.app(a.ID); got.Status != "Approved" {
		t.Errorf("status = %q after exhausted retries", got.Status)
	}
}

func TestEmailDelivery(t *testing.T) {
	finalist := rule(
		"notify finalist",
		rules.Trigger{Type: rules.TriggerTagApplied, Config: rules.TriggerConfig{Tag: "finalist"}},
		rules.AddTags("notified"),
		rules.SendEmail(rules.Email{Template: "Congratulations {{ application.applicant_name }}", Subject: "Finalist"}),
	)

	t.Run("delivered after save", func(t *testing.T) {
		w := newWorld()
		st := w.addStage(t, "Screening", finalist)
		a := w.addApplication(st, daysAgo(1))

		out, err := w.service().ApplyTag(context.Background(), a.ID, automation.TagCommand{Tag: "finalist"})
		if err != nil {
			t.Fatalf("ApplyTag: %v", err)
		}
		if len(out.Failures) != 0 {
			t.Errorf("failures = %+v", out.Failures)
		}
		if len(w.sent) != 1 {
			t.Fatalf("sent = %d, want 1", len(w.sent))
		}
		req := w.sent[0]
		if req.StageName != "Screening" || req.Email.Subject != "Finalist" {
			t.Errorf("request = %+v", req)
		}
		if diff := cmp.Diff([]string{"finalist", "notified"}, req.Application.Tags); diff != "" {
			t.Errorf("emailed state tags (-want +got):\n%s", diff)
		}
	})

	t.Run("failure keeps state", func(t *testing.T) {
		w := newWorld()
		w.sendErr = errRelayDown
		st := w.addStage(t, "Screening", finalist)
		a := w.addApplication(st, daysAgo(1))

		out, err := w.service().ApplyTag(context.Background(), a.ID, automation.TagCommand{Tag: "finalist"})
		if err != nil {
			t.Fatalf("ApplyTag: %v", err)
		}

		want := []engine.Failure{{Action: rules.ActionSendEmail, Error: errRelayDown.Error()}}
		if diff := cmp.Diff(want, out.Failures); diff != "" {
			t.Errorf("failures (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"finalist", "notified"}, w.app(a.ID).Tags); diff != "" {
			t.Errorf("saved tags (-want +got):\n%s", diff)
		}
	})
}

func TestDanglingTargetRejected(t *testing.T) {
	w := newWorld()
	st := w.addStage(t, "Screening", rule(
		"broken move",
		rules.Trigger{Type: rules.TriggerManualStatus},
		rules.AddTags("moved"),
		rules.MoveToStage("Nowhere"),
	))
	a := w.addApplication(st, daysAgo(1))

	_, err := w.service().SetStatus(context.Background(), a.ID, automation.StatusCommand{Status: "Approved"})
	if !errors.Is(err, automation.ErrRuleNotApplicable) || !errors.Is(err, engine.ErrTargetNotFound) {
		t.Fatalf("err = %v, want ErrRuleNotApplicable wrapping ErrTargetNotFound", err)
	}
	if code := automation.MapHTTPStatus(err); code != http.StatusUnprocessableEntity {
		t.Errorf("status code = %d, want 422", code)
	}

	got := w.app(a.ID)
	if w.saves != 0 || got.Status != "Pending" || len(got.Tags) != 0 {
		t.Errorf("saves=%d status %q tags %v; want nothing written", w.saves, got.Status, got.Tags)
	}
}

func TestHandleTimeElapsed(t *testing.T) {
	w := newWorld()
	st := w.addStage(t, "Screening", rule(
		"expire",
		rules.Trigger{Type: rules.TriggerTimeElapsed, Config: rules.TriggerConfig{Days: 7}},
		rules.MoveToGroup("Withdrawn"),
	))
	withdrawn := w.addGroup("Withdrawn")
	stale := w.addApplication(st, daysAgo(8))
	fresh := w.addApplication(st, daysAgo(2))

	sys := w.service()
	event := engine.Event{Type: rules.TriggerTimeElapsed}

	out, err := sys.Handle(context.Background(), stale.ID, event)
	if err != nil {
		t.Fatalf("Handle stale: %v", err)
	}
	if !out.Matched {
		t.Fatal("stale application not expired")
	}
	got := w.app(stale.ID)
	if got.StageID != nil || got.GroupID == nil || *got.GroupID != withdrawn.ID {
		t.Errorf("location = stage %v group %v", got.StageID, got.GroupID)
	}

	out, err = sys.Handle(context.Background(), fresh.ID, event)
	if err != nil {
		t.Fatalf("Handle fresh: %v", err)
	}
	if out.Matched || w.app(fresh.ID).Version != 1 {
		t.Errorf("fresh application changed: %+v", out)
	}

	out, err = sys.Handle(context.Background(), stale.ID, event)
	if err != nil {
		t.Fatalf("Handle unplaced: %v", err)
	}
	if out.Matched {
		t.Error("application outside any stage matched a stage rule")
	}
}

func TestPreviewWritesNothing(t *testing.T) {
	w := newWorld()
	st := w.addStage(t, "Screening", rule(
		"expire",
		rules.Trigger{Type: rules.TriggerTimeElapsed, Config: rules.TriggerConfig{Days: 7}},
		rules.MoveToGroup("Withdrawn"),
		rules.SendEmail(rules.Email{Template: "expired"}),
	))
	w.addGroup("Withdrawn")
	a := w.addApplication(st, daysAgo(9))

	out, err := w.service().Preview(context.Background(), a.ID, engine.Event{Type: rules.TriggerTimeElapsed})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	if !out.Matched || out.Application.GroupID == nil || len(out.Emails) != 1 {
		t.Errorf("preview outcome = %+v", out)
	}
	if w.saves != 0 || len(w.sent) != 0 {
		t.Errorf("preview wrote: saves=%d sent=%d", w.saves, len(w.sent))
	}
	if got := w.app(a.ID); got.GroupID != nil {
		t.Error("stored application moved by preview")
	}
}

func TestPreviewRejectsUnknownEvent(t *testing.T) {
	w := newWorld()
	st := w.addStage(t, "Screening")
	a := w.addApplication(st, daysAgo(1))

	_, err := w.service().Preview(context.Background(), a.ID, engine.Event{Type: "reviewed_twice"})
	if !errors.Is(err, automation.ErrInvalidCommand) {
		t.Errorf("err = %v, want ErrInvalidCommand", err)
	}
}

func TestInvokeStatus(t *testing.T) {
	w := newWorld()
	st := w.addStage(t, "Screening")
	interview := w.addStage(t, "Interview")
	st.CustomStatuses = []rules.CustomStatus{{
		Name:            "Advance",
		Color:           "green",
		IsPrimary:       true,
		RequiresComment: true,
		Actions:         []rules.Action{rules.MoveToStage("Interview")},
	}}
	panelist := w.addType("Panelist")
	a := w.addApplication(st, daysAgo(1))
	sys := w.service()
	ctx := context.Background()

	if _, err := sys.InvokeStatus(ctx, a.ID, automation.InvokeCommand{Name: "Advance"}); !errors.Is(err, automation.ErrStatusRequirement) {
		t.Errorf("missing comment err = %v", err)
	}
	if _, err := sys.InvokeStatus(ctx, a.ID, automation.InvokeCommand{Name: "Archive"}); !errors.Is(err, automation.ErrUnknownStatus) {
		t.Errorf("unknown status err = %v", err)
	}

	out, err := sys.InvokeStatus(ctx, a.ID, automation.InvokeCommand{
		Name: "Advance",
		Review: &applications.ReviewCommand{
			ReviewerID:     "p1",
			ReviewerTypeID: panelist.ID,
			Comment:        "strong research record",
		},
	})
	if err != nil {
		t.Fatalf("InvokeStatus: %v", err)
	}
	if !out.Matched || out.RuleName != "Advance" {
		t.Errorf("outcome = %+v", out)
	}

	got := w.app(a.ID)
	if got.Status != "Advance" || got.StageID == nil || *got.StageID != interview.ID {
		t.Errorf("got status %q stage %v", got.Status, got.StageID)
	}
	if len(w.reviews) != 1 || w.reviews[0].StageID != st.ID {
		t.Errorf("reviews = %+v, want one in screening", w.reviews)
	}
}

func TestInvokeStatusReviewIsAtomic(t *testing.T) {
	w := newWorld()
	st := w.addStage(t, "Screening")
	st.CustomStatuses = []rules.CustomStatus{{Name: "Hold", Color: "orange", RequiresComment: true}}
	panelist := w.addType("Panelist")
	a := w.addApplication(st, daysAgo(1))
	sys := w.service()
	ctx := context.Background()

	cmd := automation.InvokeCommand{
		Name: "Hold",
		Review: &applications.ReviewCommand{
			ReviewerID:     "p1",
			ReviewerTypeID: panelist.ID,
			Comment:        "waiting on transcripts",
		},
	}

	w.saveErr = errors.New("connection reset")
	if _, err := sys.InvokeStatus(ctx, a.ID, cmd); err == nil {
		t.Fatal("expected save error")
	}
	if len(w.reviews) != 0 || w.app(a.ID).Status != "Pending" {
		t.Fatalf("failed save left reviews %+v status %q", w.reviews, w.app(a.ID).Status)
	}

	w.saveErr = nil
	if _, err := sys.InvokeStatus(ctx, a.ID, cmd); err != nil {
		t.Fatalf("InvokeStatus: %v", err)
	}

	// The status is already Hold, so only the review is new.
	if _, err := sys.InvokeStatus(ctx, a.ID, cmd); err != nil {
		t.Fatalf("repeat InvokeStatus: %v", err)
	}
	if w.saves != 2 || len(w.reviews) != 1 {
		t.Errorf("saves=%d reviews=%d, want 2 saves and 1 replaced review", w.saves, len(w.reviews))
	}
}

func TestAccess(t *testing.T) {
	w := newWorld()
	st := w.addStage(t, "Screening")
	st.HidePII = true
	st.HiddenPIIFields = []string{"email"}
	panelist := w.addType("Panelist")
	observer := w.addType("Observer")
	w.configs = []reviewers.StageConfig{{
		StageID:            st.ID,
		ReviewerTypeID:     panelist.ID,
		ReviewerTypeName:   panelist.Name,
		MinReviewsRequired: 1,
		CanViewPriorScores: true,
		FieldVisibility:    map[string]bool{"major": false},
	}}
	a := w.addApplication(st, daysAgo(1))
	sys := w.service()
	ctx := context.Background()

	got, err := sys.Access(ctx, a.ID, panelist.ID)
	if err != nil {
		t.Fatalf("Access panelist: %v", err)
	}
	if diff := cmp.Diff([]string{"gpa"}, got.VisibleFields); diff != "" {
		t.Errorf("visible (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"gpa": 3.2}, got.Data); diff != "" {
		t.Errorf("data (-want +got):\n%s", diff)
	}
	if got.Prior != (engine.PriorAccess{Scores: true}) {
		t.Errorf("prior = %+v", got.Prior)
	}

	got, err = sys.Access(ctx, a.ID, observer.ID)
	if err != nil {
		t.Fatalf("Access observer: %v", err)
	}
	if diff := cmp.Diff([]string{"gpa", "major"}, got.VisibleFields); diff != "" {
		t.Errorf("observer visible (-want +got):\n%s", diff)
	}
	if got.Prior != (engine.PriorAccess{}) {
		t.Errorf("observer prior = %+v", got.Prior)
	}

	st.VisibilityRule = rules.FormatVisibility([]string{"Panelist"})
	if _, err := sys.Access(ctx, a.ID, observer.ID); !errors.Is(err, automation.ErrStageHidden) {
		t.Errorf("restricted observer err = %v", err)
	}
	if _, err := sys.Access(ctx, a.ID, panelist.ID); err != nil {
		t.Errorf("restricted panelist err = %v", err)
	}
	if _, err := sys.Access(ctx, a.ID, uuid.New()); !errors.Is(err, reviewers.ErrNotFound) {
		t.Errorf("unknown type err = %v", err)
	}
}

func TestAuditAndFields(t *testing.T) {
	w := newWorld()
	st := w.addStage(t, "Screening",
		when(rule("unknown field", rules.Trigger{}, rules.AddTags("x")),
			rules.Condition{Field: "essay_score", Operator: rules.OpGreater, Value: "5"}),
		rule("gone", rules.Trigger{}, rules.MoveToStage("Gone")),
		when(rule("fine", rules.Trigger{}, rules.AddTags("ok")),
			rules.Condition{Field: "gpa", Operator: rules.OpGreater, Value: "3"}),
	)
	sys := w.service()
	ctx := context.Background()

	issues, err := sys.Audit(ctx, st.ID)
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	names := make([]string, len(issues))
	for i, is := range issues {
		names[i] = is.RuleName
	}
	if diff := cmp.Diff([]string{"unknown field", "gone"}, names); diff != "" {
		t.Errorf("issues (-want +got):\n%s", diff)
	}

	catalog, err := sys.Fields(ctx, w.workflow.ID)
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	if _, ok := catalog.Lookup("gpa"); !ok {
		t.Error("catalog missing form field gpa")
	}
	if _, err := sys.Fields(ctx, uuid.New()); !errors.Is(err, workflows.ErrNotFound) {
		t.Errorf("unknown workflow err = %v", err)
	}
}
