package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/case-approval-tracker/internal/config"
	"github.com/iliyamo/case-approval-tracker/internal/database"
	"github.com/iliyamo/case-approval-tracker/internal/handler"
	"github.com/iliyamo/case-approval-tracker/internal/middleware"
	"github.com/iliyamo/case-approval-tracker/internal/queue"
	"github.com/iliyamo/case-approval-tracker/internal/repository"
	"github.com/iliyamo/case-approval-tracker/internal/router"
	"github.com/iliyamo/case-approval-tracker/internal/service"
)

func main() {
	if err := execute(newRootCmd()); err != nil {
		os.Exit(1)
	}
}

// execute runs cmd and logs the error it returns; cobra itself is silenced.
func execute(cmd *cobra.Command) error {
	err := cmd.Execute()
	if err != nil {
		log.Printf("server: %v", err)
	}
	return err
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "Test approval tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			db, err := database.Open(cmd.Context(), cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			version, err := database.Migrate(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", cfg.DBPath, version)
			return nil
		},
	})
	return root
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()
	evCfg := config.LoadEventsConfig()

	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		log.Printf("open database %s: %v", cfg.DBPath, err)
		return err
	}
	defer db.Close()

	version, err := database.Migrate(ctx, db)
	if err != nil {
		log.Printf("migrate: %v", err)
		return err
	}
	log.Printf("migrate: %s at schema version %d", cfg.DBPath, version)

	var limiter *middleware.RateLimiter
	if rlCfg.Enabled {
		if rdb := config.NewRedisClient(ctx); rdb != nil {
			defer rdb.Close()
			limiter = middleware.NewRateLimiter(rlCfg, rdb)
		} else {
			log.Printf("ratelimit: redis unreachable, limiter disabled")
		}
	}

	var events handler.EventPublisher
	if evCfg.Enabled {
		events = service.NewPublisher(evCfg.URL, evCfg.Queue)
	}
	if evCfg.Consumer {
		consumer := &queue.Consumer{URL: evCfg.URL, Queue: evCfg.Queue, LogDir: evCfg.LogDir}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("test-events: consumer stopped: %v", err)
			}
		}()
	}

	metrics := middleware.NewMetrics()
	e := router.New(cfg, metrics)
	router.RegisterRoutes(e, db, metrics, cfg.PublicDir)
	router.RegisterUsers(e, handler.NewUserHandler(repository.NewUserRepo(db)), limiter.API())
	router.RegisterTests(e, handler.NewTestHandler(repository.NewTestRepo(db), events), limiter.API())
	router.RegisterStats(e, handler.NewStatsHandler(repository.NewStatsRepo(db)), limiter.Stats())

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("listen on %s: %v", addr, err)
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
