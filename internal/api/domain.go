package api

import (
	"fmt"

	"github.com/JaimeStill/stagehand/internal/applications"
	"github.com/JaimeStill/stagehand/internal/automation"
	"github.com/JaimeStill/stagehand/internal/forms"
	"github.com/JaimeStill/stagehand/internal/groups"
	"github.com/JaimeStill/stagehand/internal/notify"
	"github.com/JaimeStill/stagehand/internal/reviewers"
	"github.com/JaimeStill/stagehand/internal/rubrics"
	"github.com/JaimeStill/stagehand/internal/scheduler"
	"github.com/JaimeStill/stagehand/internal/stages"
	"github.com/JaimeStill/stagehand/internal/workflows"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Workflows    workflows.System
	Stages       stages.System
	Groups       groups.System
	Reviewers    reviewers.System
	Rubrics      rubrics.System
	Forms        forms.System
	Applications applications.System
	Notify       notify.System
	Automation   automation.System
	Scheduler    *scheduler.Scheduler
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) (*Domain, error) {
	db := runtime.Database.Connection()

	workflowsSystem := workflows.New(db, runtime.Logger, runtime.Pagination)
	stagesSystem := stages.New(db, runtime.Logger)
	groupsSystem := groups.New(db, runtime.Logger)
	reviewersSystem := reviewers.New(db, runtime.Logger, runtime.Pagination)
	rubricsSystem := rubrics.New(db, runtime.Logger, runtime.Pagination)
	formsSystem := forms.New(db, runtime.Logger)
	applicationsSystem := applications.New(db, runtime.Logger, runtime.Pagination)

	notifySystem, err := notify.New(
		runtime.Storage,
		runtime.Notify,
		runtime.Logger,
		runtime.MaxListSize,
	)
	if err != nil {
		return nil, fmt.Errorf("notify init failed: %w", err)
	}

	automationSystem := automation.New(
		&automation.Runtime{
			Applications: applicationsSystem,
			Stages:       stagesSystem,
			Workflows:    workflowsSystem,
			Groups:       groupsSystem,
			Reviewers:    reviewersSystem,
			Forms:        formsSystem,
			Notifier:     notifySystem,
			Logger:       runtime.Logger,
		},
		runtime.Automation,
	)

	schedulerSystem := scheduler.New(
		&runtime.Scheduler,
		stagesSystem,
		applicationsSystem,
		automationSystem,
		runtime.Logger,
	)

	return &Domain{
		Workflows:    workflowsSystem,
		Stages:       stagesSystem,
		Groups:       groupsSystem,
		Reviewers:    reviewersSystem,
		Rubrics:      rubricsSystem,
		Forms:        formsSystem,
		Applications: applicationsSystem,
		Notify:       notifySystem,
		Automation:   automationSystem,
		Scheduler:    schedulerSystem,
	}, nil
}
