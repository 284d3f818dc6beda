package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"judge_gate/internal/api"
	"judge_gate/internal/app/service"
	"judge_gate/internal/app/worker"
	"judge_gate/internal/common/security"
	"judge_gate/internal/domain/model"
	"judge_gate/internal/domain/repository"
	"judge_gate/internal/platform/blobstore"
	"judge_gate/internal/platform/cache"
	"judge_gate/internal/platform/config"
	"judge_gate/internal/platform/database"
	"judge_gate/internal/platform/lock"
	"judge_gate/internal/platform/logging"
	"judge_gate/internal/platform/metrics"
	"judge_gate/internal/platform/queue"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	cmd := &cli.Command{
		Name:  "judge_gate",
		Usage: "run submission admission service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "optional TOML config file, environment variables take precedence",
				Sources: cli.EnvVars("JUDGE_GATE_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP API and the redispatch worker",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply the database schema",
				Action: migrate,
			},
			{
				Name:  "token",
				Usage: "issue a bearer token for local testing",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "user-id", Required: true},
					&cli.StringFlag{Name: "role", Value: model.RoleUser},
					&cli.DurationFlag{Name: "ttl", Usage: "token lifetime (default JWT_EXPIRATION_HOURS)"},
				},
				Action: token,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("judge_gate failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.LogLevel, cfg.LogColor)
	return cfg, nil
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := database.Connect(ctx, cfg.DBConnStr)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	slog.Info("Database schema applied")
	return nil
}

func token(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	security.InitJWT(cfg.JWTKey)
	t, err := security.GenerateToken(cmd.Int64("user-id"), cmd.String("role"), cfg.TokenTTL(cmd.Duration("ttl")))
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	fmt.Println(t)
	return nil
}

func newGapReserver(cfg *config.Config, rdb redis.UniversalClient) (lock.Reserver, *lock.LocalReserver, error) {
	switch cfg.ReserverKind {
	case "redis", "":
		return lock.NewRedisReserver(rdb, "judge_gate:"), nil, nil
	case "local":
		local := lock.NewLocalReserver()
		return local, local, nil
	}
	return nil, nil, fmt.Errorf("unknown gap reserver %q", cfg.ReserverKind)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	metrics.Register()
	security.InitJWT(cfg.JWTKey)

	db, err := database.Connect(ctx, cfg.DBConnStr)
	if err != nil {
		return err
	}
	defer database.Close(db)

	rdb, err := queue.ConnectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer queue.CloseRedis(rdb)

	pipeline, err := queue.New(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	blobs, err := blobstore.New(ctx, cfg)
	if err != nil {
		return err
	}

	gapReserver, localReserver, err := newGapReserver(cfg, rdb)
	if err != nil {
		return err
	}

	problemRepo := repository.NewPgProblemRepository(db)
	contestRepo := repository.NewPgContestRepository(db)
	runRepo := repository.NewPgRunRepository(db)

	authz := service.NewAuthorizer(problemRepo, contestRepo)
	admission := service.NewAdmissionController(problemRepo, contestRepo, runRepo, authz,
		service.NewPenaltyCalculator(contestRepo), gapReserver,
		time.Duration(cfg.PracticeSubmissionGapSeconds)*time.Second)
	invalidator := service.NewScoreboardCacheInvalidator(cache.NewRedisCache(rdb),
		time.Duration(cfg.ScoreboardInvalidateTimeoutSeconds)*time.Second)
	dispatcher := service.NewGradingDispatcher(runRepo, blobs, pipeline, invalidator)
	submissions := service.NewSubmissionService(admission, service.NewRunRecordFactory(), dispatcher, cfg.MaxSourceBytes)
	queries := service.NewRunQueryService(runRepo, blobs, authz)

	redispatch := worker.NewRedispatchWorker(runRepo, pipeline, lock.NewRedisReserver(rdb, ""), cfg)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      api.NewRouter(submissions, queries),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server starting", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", cfg.APIPort, err)
		}
		return nil
	})
	g.Go(func() error {
		redispatch.Start(gctx)
		return nil
	})
	if localReserver != nil {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					localReserver.Sweep()
				}
			}
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		invalidator.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server and worker stopped gracefully")
	return nil
}
