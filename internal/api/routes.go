package api

import (
	"net/http"

	"github.com/JaimeStill/stagehand/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain) {
	groupsHandler := domain.Groups.Handler()
	reviewersHandler := domain.Reviewers.Handler()

	routes.Register(
		mux,
		domain.Workflows.Handler().Routes(),
		domain.Stages.Handler().Routes(),
		groupsHandler.Routes(),
		groupsHandler.StageRoutes(),
		reviewersHandler.Routes(),
		reviewersHandler.ConfigRoutes(),
		domain.Rubrics.Handler().Routes(),
		domain.Forms.Handler().Routes(),
		domain.Applications.Handler().Routes(),
		domain.Automation.Handler().Routes(),
		domain.Notify.Handler().Routes(),
	)
}
