// Package main is the entry point for the Conductor execution engine.
// It runs the rebalancing loop against simulated paper venues: each cycle
// refreshes market statistics, recomputes the target allocation and paces the
// resulting orders through the smart router.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/conductor/internal/config"
	"github.com/aristath/conductor/internal/di"
	"github.com/aristath/conductor/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	log.Info().
		Strs("universe", cfg.Symbols()).
		Int("venues", len(cfg.PaperVenues)).
		Str("schedule", cfg.RebalanceSchedule).
		Msg("Starting Conductor")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire every component and initialize the portfolio from the first snapshot.
	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// The work scheduler paces iceberg slices and TWAP intervals in real time.
	workDone := make(chan struct{})
	go func() {
		container.WorkScheduler.Run(ctx)
		close(workDone)
	}()

	// Run one cycle immediately, then on the configured schedule.
	if err := container.Cron.RunNow(ctx, container.RebalanceJob); err != nil {
		log.Error().Err(err).Msg("Initial rebalance failed")
	}
	container.Cron.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	// Stop scheduling new cycles, then stop pacing. In-flight venue calls are
	// allowed to return before the work scheduler exits.
	container.Cron.Stop()

	for _, o := range container.Manager.Execution().Orders() {
		if !o.Status.IsTerminal() {
			if err := container.Manager.CancelOrder(o.OrderID); err != nil {
				log.Warn().Err(err).Str("order_id", o.OrderID).Msg("Failed to cancel order")
			}
		}
	}
	cancel()

	select {
	case <-workDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Timed out waiting for in-flight orders")
	}

	report := container.Manager.GeneratePerformanceReport()
	log.Info().
		Float64("final_value", container.Book.Value(container.Market.Prices())).
		Float64("total_return", report.Metrics.TotalReturn).
		Float64("sharpe", report.Metrics.SharpeRatio).
		Float64("max_drawdown", report.Metrics.MaxDrawdown).
		Int("trades", report.Trades.TotalTrades).
		Msg("Conductor stopped")
}
