package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"ideaforge/adapters/api"
	"ideaforge/adapters/excel"
	"ideaforge/adapters/llm"
	"ideaforge/adapters/memory"
	"ideaforge/adapters/postgres"
	"ideaforge/app"
	"ideaforge/internal"
	"ideaforge/internal/config"
	"ideaforge/internal/ops"
	"ideaforge/ports"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	logger := internal.NewDefaultLogger()
	log := logger.WithTag("main")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	store, ready, cleanup, err := buildProfileStore(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	bindings, err := buildBindings(cfg)
	if err != nil {
		return err
	}

	pipeline := app.NewPipeline(bindings, store, app.PipelineConfig{
		RunTimeout:  cfg.Pipeline.RunTimeout,
		MaxInFlight: cfg.Pipeline.MaxInFlight,
		Policy:      cfg.Pipeline.Retry,
	}, logger)

	server := api.NewServer(api.Config{
		GinMode:          cfg.Server.GinMode,
		ReportDir:        cfg.Pipeline.ReportDir,
		DefaultIdeaCount: cfg.Pipeline.DefaultIdeaCount,
		MaxIdeaCount:     cfg.Pipeline.MaxIdeaCount,
	}, pipeline, store, excel.NewReportWriter(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("front door listening on :%s", cfg.Server.Port)
		return server.Run(ctx, cfg.Server.Port)
	})
	g.Go(func() error {
		log.Info("ops surface listening on :%s", cfg.Server.OpsPort)
		return ops.Serve(ctx, cfg.Server.OpsPort, ops.NewRouter(ready))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// buildProfileStore picks PostgreSQL when DATABASE_URL is configured and
// falls back to the in-memory store otherwise, so the service runs
// without a database in development.
func buildProfileStore(cfg *config.Config, log *internal.Logger) (ports.ProfileStore, ops.ReadyFunc, func(), error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set; profiles are in-memory and lost on restart")
		return memory.NewProfileStore(), nil, func() {}, nil
	}
	repo, err := postgres.Connect(cfg.Database.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect profile store: %w", err)
	}
	log.Info("profile store: postgres")
	return repo, repo.Ping, func() { repo.Close() }, nil
}

// buildBindings resolves each role's configured provider names into live
// model ports.
func buildBindings(cfg *config.Config) (app.Bindings, error) {
	makeBinding := func(role ports.Role, rb config.RoleBinding) (app.RoleBinding, error) {
		pc, ok := cfg.ProviderConfig(rb.Provider)
		if !ok {
			return app.RoleBinding{}, fmt.Errorf("role %s: unknown provider %q", role, rb.Provider)
		}
		primary, err := llm.NewModelPort(pc)
		if err != nil {
			return app.RoleBinding{}, fmt.Errorf("role %s: %w", role, err)
		}
		binding := app.RoleBinding{Primary: primary}
		if rb.Fallback != "" {
			fc, ok := cfg.ProviderConfig(rb.Fallback)
			if !ok {
				return app.RoleBinding{}, fmt.Errorf("role %s: unknown fallback provider %q", role, rb.Fallback)
			}
			fallback, err := llm.NewModelPort(fc)
			if err != nil {
				return app.RoleBinding{}, fmt.Errorf("role %s fallback: %w", role, err)
			}
			binding.Fallback = fallback
		}
		return binding, nil
	}

	var (
		b   app.Bindings
		err error
	)
	if b.Generator, err = makeBinding(ports.RoleGenerator, cfg.Roles.Generator); err != nil {
		return b, err
	}
	if b.Refiner, err = makeBinding(ports.RoleRefiner, cfg.Roles.Refiner); err != nil {
		return b, err
	}
	if b.Evaluator, err = makeBinding(ports.RoleEvaluator, cfg.Roles.Evaluator); err != nil {
		return b, err
	}
	return b, nil
}
