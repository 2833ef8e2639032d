// Command agentd runs the job engine as a standalone daemon with stub
// handlers for the agent's plan generation and plan execution job types.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/api"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/audit"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/engine"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/store"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/store/memory"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/store/postgres"
	redisstore "github.com/ronnygunawan/RG.OpenCopilot-sub005/store/redis"
)

type planGenInput struct {
	Issue int    `json:"issue"`
	Repo  string `json:"repo"`
}

type planExecInput struct {
	PlanID string `json:"plan_id"`
	Repo   string `json:"repo"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("agentd exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	eng, err := engine.New(
		engine.WithConfig(cfg.EngineConfig()),
		engine.WithStore(st),
		engine.WithLogger(logger),
		engine.WithHook(audit.NewLogger(logger)),
	)
	if err != nil {
		return err
	}

	// Plan execution: apply a previously generated plan.
	planExec := job.NewDefinition("plan_execution", func(ctx context.Context, in planExecInput) error {
		logger.Info("executing plan",
			slog.String("plan_id", in.PlanID),
			slog.String("repo", in.Repo),
		)
		// Stub: a real handler clones the repo, applies the plan's
		// steps, and opens a pull request.
		select {
		case <-time.After(200 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err := engine.Register(eng, planExec); err != nil {
		return err
	}

	// Plan generation: read the issue, produce a plan, then hand off to
	// plan execution. The child job inherits this job's provenance.
	planGen := job.NewDefinition("plan_generation", func(ctx context.Context, in planGenInput) error {
		logger.Info("generating plan",
			slog.Int("issue", in.Issue),
			slog.String("repo", in.Repo),
		)
		_, enqueueErr := engine.Enqueue(ctx, eng, planExec, planExecInput{
			PlanID: "stub-plan",
			Repo:   in.Repo,
		})
		return enqueueErr
	})
	if err := engine.Register(eng, planGen); err != nil {
		return err
	}

	if err := eng.Start(ctx); err != nil {
		return err
	}
	logger.Info("agentd running",
		slog.String("store", cfg.Store),
		slog.Int("concurrency", cfg.MaxConcurrency),
		slog.String("listen_addr", cfg.ListenAddr),
	)

	var srv *http.Server
	if cfg.ListenAddr != "" {
		srv = &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           api.New(eng).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("http server failed", slog.String("error", serveErr.Error()))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if srv != nil {
		if shutErr := srv.Shutdown(stopCtx); shutErr != nil {
			logger.Error("http shutdown failed", slog.String("error", shutErr.Error()))
		}
	}

	return eng.Stop(stopCtx)
}

// openStore builds the configured persistence backend and runs its
// migrations.
func openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return redisstore.New(client, redisstore.WithLogger(logger)), nil

	case "postgres":
		st, err := postgres.New(ctx, cfg.PostgresURL, postgres.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			return nil, err
		}
		return st, nil

	default:
		return memory.New(), nil
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
