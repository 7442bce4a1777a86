package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/marathon-go/appsched/apprepo"
	"github.com/marathon-go/appsched/builder"
	cfgpkg "github.com/marathon-go/appsched/config"
	"github.com/marathon-go/appsched/driver/fake"
	"github.com/marathon-go/appsched/eventbus"
	"github.com/marathon-go/appsched/healthcheck"
	"github.com/marathon-go/appsched/internal/idutil"
	"github.com/marathon-go/appsched/queue"
	"github.com/marathon-go/appsched/ratelimit"
	"github.com/marathon-go/appsched/scheduler"
	"github.com/marathon-go/appsched/tracker"
	"github.com/marathon-go/appsched/updatehook"
)

// AgentCommand starts the scheduler engine against an in-memory driver and
// collaborator set. A real deployment replaces the driver with a binding to
// a specific cluster master's wire protocol; that binding is out of scope
// for this module.
type AgentCommand struct{}

func (c *AgentCommand) Help() string {
	return "Usage: schedulerd agent [-log-level=info]\n\nStarts the scheduler engine with in-memory collaborators."
}

func (c *AgentCommand) Synopsis() string { return "Run the scheduler engine" }

func (c *AgentCommand) Run(args []string) int {
	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	logLevel := fs.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "schedulerd",
		Level: hclog.LevelFromString(*logLevel),
	})

	cfg, err := cfgpkg.FromEnviron()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return 1
	}

	engine, bus, err := buildEngine(logger, cfg)
	if err != nil {
		logger.Error("failed to build scheduler engine", "error", err)
		return 1
	}
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		time.Sleep(cfg.ReconcileDelay)
		if err := engine.ReconcileAndScaleTasks(ctx); err != nil {
			logger.Warn("initial reconcile failed", "error", err)
		}
	}()

	logger.Info("schedulerd started", "reconcile_delay", cfg.ReconcileDelay)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("schedulerd shutting down")
	return 0
}

func buildEngine(logger hclog.Logger, cfg cfgpkg.Config) (*scheduler.Engine, *eventbus.Bus, error) {
	t, err := tracker.New(logger, tracker.WithMaxStatusHistory(cfg.MaxStatusHistory))
	if err != nil {
		return nil, nil, fmt.Errorf("building task tracker: %w", err)
	}
	repo, err := apprepo.New(logger)
	if err != nil {
		return nil, nil, fmt.Errorf("building app repository: %w", err)
	}

	q := queue.New(logger)
	limiter := ratelimit.New()
	bus := eventbus.New(logger)
	drv := fake.New()
	idStore := idutil.NewMemoryStore()
	health := healthcheck.New()
	update := updatehook.New(t, drv, logger)

	engineCfg := scheduler.Config{
		ZKFutureTimeout:   cfg.ZKFutureTimeout,
		DefaultWait:       cfg.DefaultWait,
		StagedTaskTimeout: cfg.StagedTaskTimeout,
		SuicideJitter:     cfg.SuicideJitter,
	}

	engine := scheduler.New(logger, engineCfg, drv, t, q, repo, builder.New(), limiter, bus, idStore,
		scheduler.WithHealthCheckHook(health),
		scheduler.WithUpdateHook(update),
	)
	return engine, bus, nil
}
