package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Khushalgogia/joke-manager-v12/internal/app"
	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	output     string
}

func main() {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "jokectl",
		Short:         "Joke archive and campaign generator",
		Long:          "Generates joke campaigns from headlines and maintains the joke archive: search, add, import, extract and bridge backfill.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Path to config file")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "Output format: text, json or yaml")

	root.AddCommand(
		campaignCmd(opts),
		historyCmd(opts),
		searchCmd(opts),
		addCmd(opts),
		importCmd(opts),
		extractCmd(opts),
		refreshCmd(opts),
		backfillCmd(opts),
		statsCmd(opts),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads config, installs the logger and wires the services.
// The caller closes the returned App.
func setup(ctx context.Context, opts *rootOptions) (*app.App, error) {
	if _, err := parseFormat(opts.output); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Logging.ServiceName == "" || cfg.Logging.ServiceName == "joke-manager" {
		cfg.Logging.ServiceName = "jokectl"
	}
	app.NewLogger(&cfg.Logging)
	return app.New(ctx, cfg)
}
