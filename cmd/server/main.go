package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-portfolio-cms/internal/app"
	"go-portfolio-cms/internal/config"
	"go-portfolio-cms/internal/logger"
)

func main() {
	// Colour console output until the configuration says otherwise.
	slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the recycle bin reaper",
		RunE:  runServe,
	}

	root := &cobra.Command{
		Use:           "portfolio-cms",
		Short:         "Portfolio content backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.AddCommand(serve, &cobra.Command{
		Use:   "reap",
		Short: "Purge expired recycle bin entries once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			result, err := app.RunReap(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			slog.Info("reap finished", "cutoff", result.Cutoff, "purged", result.Purged)
			return nil
		},
	})

	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	slog.SetDefault(slog.New(logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)))
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	return application.Run(cmd.Context())
}
