// Package serve implements the HTTP server command.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cmdcommon "github.com/regwatch/regwatch/cmd/common"
	"github.com/regwatch/regwatch/internal/api"
	"github.com/regwatch/regwatch/internal/job"
	"github.com/regwatch/regwatch/internal/logger"
)

const (
	signalChannelBufferSize = 1
	errorChannelBufferSize  = 1
	defaultShutdownTimeout  = 30 * time.Second
)

// Command returns the serve command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the pipeline on schedule",
		Long: `Starts the HTTP API for browsing discovered documents and run history,
and fires full pipeline runs at the configured daily hours. Runs until
interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return start()
		},
	}
}

func start() error {
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	pipeline, err := cmdcommon.BuildPipeline(deps)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	var scheduler *job.Scheduler
	if deps.Config.Schedule.Enabled {
		scheduler, err = job.NewScheduler(pipeline.Orchestrator, deps.Config.Schedule.Hours, deps.Logger)
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		scheduler.Start()
	} else {
		deps.Logger.Info("schedule disabled, runs must be triggered via the API")
	}

	docs := api.NewDocumentsHandler(pipeline.Store)
	runs := api.NewRunsHandler(pipeline.Store, pipeline.Orchestrator, deps.Logger)
	router := api.SetupRouter(deps.Logger, docs, runs)
	server := api.NewServer(deps.Config.Server.Address, router, deps.Logger)

	deps.Logger.Info("starting HTTP server", "addr", deps.Config.Server.Address)
	errChan := make(chan error, errorChannelBufferSize)
	go func() {
		if serveErr := server.Start(); serveErr != nil {
			errChan <- serveErr
		}
	}()

	return runUntilInterrupt(deps.Logger, server, scheduler, errChan)
}

// runUntilInterrupt blocks until the server errors or a shutdown
// signal arrives.
func runUntilInterrupt(log logger.Interface, server *api.Server, scheduler *job.Scheduler, errChan chan error) error {
	sigChan := make(chan os.Signal, signalChannelBufferSize)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case serverErr := <-errChan:
		log.Error("server error", "error", serverErr)
		return fmt.Errorf("server error: %w", serverErr)
	case sig := <-sigChan:
		return shutdown(log, server, scheduler, sig)
	}
}

func shutdown(log logger.Interface, server *api.Server, scheduler *job.Scheduler, sig os.Signal) error {
	log.Info("shutdown signal received", "signal", sig.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		log.Info("stopping scheduler")
		scheduler.Stop()
	}

	log.Info("stopping HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop server", "error", err)
		return fmt.Errorf("failed to stop server: %w", err)
	}

	log.Info("server stopped")
	return nil
}
