// Package scheduler periodically raises time_elapsed for every application
// resident in a stage that carries an active time_elapsed rule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/internal/applications"
	"github.com/JaimeStill/stagehand/internal/automation"
	"github.com/JaimeStill/stagehand/internal/stages"
	"github.com/JaimeStill/stagehand/pkg/lifecycle"
	"github.com/JaimeStill/stagehand/rules"
)

// Stages lists the stages worth sweeping.
type Stages interface {
	Scheduled(ctx context.Context) ([]stages.Stage, error)
}

// Applications lists the applications resident in a stage.
type Applications interface {
	Resident(ctx context.Context, stageID uuid.UUID) ([]applications.Application, error)
}

// Automation evaluates one event against an application.
type Automation interface {
	Handle(ctx context.Context, id uuid.UUID, event engine.Event) (*automation.Outcome, error)
}

// Report summarizes one sweep.
type Report struct {
	Stages    int `json:"stages"`
	Evaluated int `json:"evaluated"`
	Matched   int `json:"matched"`
	Failed    int `json:"failed"`
}

// Scheduler runs the sweep on a fixed interval for the lifetime of the
// coordinator context.
type Scheduler struct {
	cfg          Config
	stages       Stages
	applications Applications
	automation   Automation
	logger       *slog.Logger
}

func New(cfg *Config, st Stages, apps Applications, auto Automation, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:          *cfg,
		stages:       st,
		applications: apps,
		automation:   auto,
		logger:       logger.With("system", "scheduler"),
	}
}

// Start launches the sweep loop once startup completes. A disabled
// scheduler registers nothing.
func (s *Scheduler) Start(lc *lifecycle.Coordinator) error {
	if !s.cfg.Enabled {
		s.logger.Info("scheduler disabled")
		return nil
	}

	interval := s.cfg.IntervalDuration()
	if interval <= 0 {
		return fmt.Errorf("invalid scheduler interval: %s", s.cfg.Interval)
	}

	s.logger.Info("starting scheduler", "interval", interval, "concurrency", s.cfg.Concurrency)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.run(lc.Context(), interval)
	}()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-done
		s.logger.Info("scheduler stopped")
	})

	return nil
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("sweep failed", "error", err)
				continue
			}
			s.logger.Info(
				"sweep complete",
				"stages", report.Stages,
				"evaluated", report.Evaluated,
				"matched", report.Matched,
				"failed", report.Failed,
			)
		}
	}
}

// Sweep raises time_elapsed once for every resident application of every
// scheduled stage. Per-application failures are logged and counted; only a
// failure to list the scheduled stages, or cancellation, is returned.
func (s *Scheduler) Sweep(ctx context.Context) (Report, error) {
	scheduled, err := s.stages.Scheduled(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list scheduled stages: %w", err)
	}

	var (
		mu     sync.Mutex
		report = Report{Stages: len(scheduled)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, st := range scheduled {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			resident, err := s.applications.Resident(gctx, st.ID)
			if err != nil {
				s.logger.Error("list resident applications failed", "stage", st.ID, "error", err)
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}

			for _, a := range resident {
				if gctx.Err() != nil {
					return gctx.Err()
				}

				out, err := s.automation.Handle(gctx, a.ID, engine.Event{Type: rules.TriggerTimeElapsed})

				mu.Lock()
				report.Evaluated++
				switch {
				case err != nil:
					report.Failed++
				case out.Matched:
					report.Matched++
				}
				mu.Unlock()

				if err != nil {
					s.logger.Error("time_elapsed failed", "application", a.ID, "stage", st.ID, "error", err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}
