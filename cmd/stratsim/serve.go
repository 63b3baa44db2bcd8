package main

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/stratsim/internal/api"
	"github.com/newthinker/stratsim/internal/api/job"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stratsim API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := build(true)
	if err != nil {
		return err
	}
	defer c.Close()

	cfg := c.cfg
	log := c.log

	log.Info("starting stratsim server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("data_source", cfg.Data.Source),
		zap.Strings("strategies", c.strategies.Names()),
	)

	deps := api.Dependencies{
		Backtester: c.backtester,
		Strategies: c.strategies,
		Jobs:       job.NewStore(cfg.Server.MaxJobs, time.Duration(cfg.Server.JobTTLHours)*time.Hour),
		Defaults:   c.defaults(),
		Metrics:    c.metrics,
		Reports:    c.reports,
	}
	if c.journal != nil {
		deps.Journal = c.journal
	}

	server, err := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		APIKey:      cfg.Server.APIKey,
		MetricsPath: cfg.Metrics.Path,
	}, deps, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	ctx, stop := withSignals(cmd.Context())
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down stratsim server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
