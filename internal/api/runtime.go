package api

import (
	"github.com/JaimeStill/stagehand/internal/automation"
	"github.com/JaimeStill/stagehand/internal/config"
	"github.com/JaimeStill/stagehand/internal/infrastructure"
	"github.com/JaimeStill/stagehand/internal/notify"
	"github.com/JaimeStill/stagehand/internal/scheduler"
	"github.com/JaimeStill/stagehand/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination  pagination.Config
	Automation  automation.Config
	Scheduler   scheduler.Config
	Notify      notify.Config
	MaxListSize int32
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Pagination:  cfg.API.Pagination,
		Automation:  cfg.Automation,
		Scheduler:   cfg.Scheduler,
		Notify:      cfg.Notify,
		MaxListSize: cfg.Storage.MaxListSize,
	}
}
