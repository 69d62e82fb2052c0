package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/stagehand/internal/api"
	"github.com/JaimeStill/stagehand/internal/blueprints"
	"github.com/JaimeStill/stagehand/internal/config"
	"github.com/JaimeStill/stagehand/internal/infrastructure"
)

func main() {
	var (
		file     = flag.String("file", "", "Blueprint YAML file to apply")
		validate = flag.Bool("validate", false, "Validate the blueprint without applying it")
	)
	flag.Parse()

	if *file == "" {
		fmt.Println("usage: seed -file <blueprint.yaml> [-validate]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	bp, err := blueprints.Load(*file)
	if err != nil {
		log.Fatal(err)
	}

	if *validate {
		fmt.Printf("blueprint %q is valid: %d stages, %d groups\n", bp.Workflow.Name, len(bp.Stages), len(bp.Groups))
		return
	}

	if err := apply(bp); err != nil {
		log.Fatal(err)
	}
}

func apply(bp *blueprints.Blueprint) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return err
	}

	if err := infra.Database.Start(infra.Lifecycle); err != nil {
		return err
	}
	infra.Lifecycle.WaitForStartup()
	defer infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())

	domain, err := api.NewDomain(api.NewRuntime(cfg, infra))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seeder := blueprints.NewSeeder(domain.Workflows, domain.Stages, domain.Groups, infra.Logger)
	result, err := seeder.Apply(ctx, bp)
	if err != nil {
		return fmt.Errorf("apply blueprint: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
