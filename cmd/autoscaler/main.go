package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"github.com/cisearch/ingest/internal/autoscaler"
	"github.com/cisearch/ingest/internal/fleet"
	"github.com/cisearch/ingest/internal/logger"
	"github.com/cisearch/ingest/internal/metrics"
	"github.com/cisearch/ingest/internal/queue"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	app := fx.New(
		logger.FXModule,
		metrics.FXModule,
		queue.FXModule,
		autoscaler.FXModule,

		fx.Provide(
			func(registry *fleet.Registry) autoscaler.FleetDriver {
				return newCommandDriver(registry)
			},
		),
	)

	app.Run()
}

// commandDriver delegates provisioning to operator-supplied shell
// commands, so the same controller binary drives any orchestrator that
// can be scripted. The launch command receives the worker count in
// SCALE_COUNT; the terminate command receives the victim ids in
// SCALE_WORKER_IDS, space separated. Fleet size comes from the worker
// registry, which every live worker heartbeats into.
type commandDriver struct {
	registry     *fleet.Registry
	launchCmd    string
	terminateCmd string
}

func newCommandDriver(registry *fleet.Registry) *commandDriver {
	return &commandDriver{
		registry:     registry,
		launchCmd:    os.Getenv("SCALE_LAUNCH_COMMAND"),
		terminateCmd: os.Getenv("SCALE_TERMINATE_COMMAND"),
	}
}

func (d *commandDriver) CurrentSize(ctx context.Context) (int, error) {
	workers, err := d.registry.Workers(ctx)
	if err != nil {
		return 0, err
	}
	return len(workers), nil
}

func (d *commandDriver) Launch(ctx context.Context, n int) error {
	if d.launchCmd == "" {
		return fmt.Errorf("SCALE_LAUNCH_COMMAND is not configured")
	}
	return d.run(ctx, d.launchCmd, fmt.Sprintf("SCALE_COUNT=%d", n))
}

func (d *commandDriver) Terminate(ctx context.Context, ids []string) error {
	if d.terminateCmd == "" {
		return fmt.Errorf("SCALE_TERMINATE_COMMAND is not configured")
	}
	return d.run(ctx, d.terminateCmd, "SCALE_WORKER_IDS="+strings.Join(ids, " "))
}

func (d *commandDriver) run(ctx context.Context, command, extraEnv string) error {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Env = append(os.Environ(), extraEnv)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("scale command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
