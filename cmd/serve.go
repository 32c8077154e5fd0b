package cmd

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

	"github.com/matrixise/nouns-dashboard/internal/api"
	"github.com/matrixise/nouns-dashboard/internal/health"
	"github.com/matrixise/nouns-dashboard/internal/scheduler"
	"github.com/matrixise/nouns-dashboard/internal/treasury"
	"github.com/spf13/cobra"
)

var interval string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the treasury and member directory API",
	Long: `Serve the treasury summary and member directory over HTTP. With an interval the
treasury is refreshed on schedule and, when a database is configured, each
snapshot is persisted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&interval, "interval", "", "refresh interval - duration (5m, 1h) or cron (\"*/5 * * * *\") - empty to refresh on demand")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		slog.Info("Signal received, graceful shutdown", "signal", sig)
		cancel()
	}()

	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	runInterval := interval
	if runInterval == "" {
		runInterval = cfg.Interval
	}
	if runInterval != "" {
		if err := scheduler.ValidateScheduleInterval(runInterval); err != nil {
			return fmt.Errorf("invalid interval: %w", err)
		}
	}

	slog.Info("Configuration loaded",
		"config_path", cfgFile,
		"window_days", cfg.Activity.WindowDays,
		"activity_enabled", cfg.Activity.Enabled,
		"interval", runInterval,
	)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	a.persistSnapshots()

	checkerOpts := []health.Option{}
	if a.store != nil {
		checkerOpts = append(checkerOpts, health.WithDatabase(a.store))
	}
	if a.cache != nil {
		checkerOpts = append(checkerOpts, health.WithCache(a.cache))
	}

	var healthChecker *health.Checker
	refresh := func(jobCtx context.Context) error {
		_, err := a.treasury.Refresh(jobCtx)
		if errors.Is(err, treasury.ErrSuperseded) {
			return nil
		}
		if healthChecker != nil {
			healthChecker.UpdateLastRun(err == nil)
		}
		return err
	}

	var sched *scheduler.Scheduler
	if runInterval != "" {
		slog.Info("Starting scheduled treasury refresh",
			"schedule", scheduler.DescribeSchedule(runInterval, cfg.GetTimezone()),
			"run_immediately", cfg.ShouldRunImmediately())

		sched, err = scheduler.NewScheduler(ctx, scheduler.Config{
			Name:           "treasury-refresh",
			Interval:       runInterval,
			Timezone:       cfg.GetTimezone(),
			RunImmediately: cfg.ShouldRunImmediately(),
			Logger:         slog.Default(),
		}, refresh)
		if err != nil {
			slog.Error("Failed to create scheduler", "error", err)
			return fmt.Errorf("scheduler creation failed: %w", err)
		}
		defer sched.Stop()

		checkerOpts = append(checkerOpts, health.WithDaemon(sched.ExpectedInterval()))
	}

	healthChecker = health.NewChecker(a.chain, checkerOpts...)

	server := &api.Server{
		Treasury: a.treasury,
		Health:   healthChecker.Handler(),
		Logger:   slog.Default(),
	}
	if a.store != nil {
		server.Rosters = storeRosters{store: a.store}
		server.History = a.store
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	if sched != nil {
		if err := sched.Start(); err != nil {
			slog.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("scheduler start failed: %w", err)
		}
	}

	<-ctx.Done()
	slog.Info("Shutdown requested, stopping server")
	return nil
}
