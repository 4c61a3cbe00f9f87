package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"xcs/internal/config"
	"xcs/internal/metrics"
	"xcs/pkg/xcs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// app carries the resolved configuration shared by every subcommand.
type app struct {
	configPath string
	storeKind  string
	dbPath     string
	logLevel   string
	logFormat  string

	cfg    config.File
	logger *slog.Logger
	stderr io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr}
	root := &cobra.Command{
		Use:           "xcsctl",
		Short:         "Train and inspect XCS learning classifier systems",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML or JSON config file")
	flags.StringVar(&a.storeKind, "store", "", "store backend: memory or sqlite")
	flags.StringVar(&a.dbPath, "db", "", "sqlite database path")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "", "text or json")

	root.AddCommand(
		newRunCommand(a),
		newRunsCommand(a),
		newPopulationCommand(a),
		newExportCommand(a),
		newServeCommand(a),
		newPresetsCommand(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Storage.Kind = a.storeKind
	}
	if flags.Changed("db") {
		cfg.Storage.SQLitePath = a.dbPath
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Logging, a.stderr)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) client(collectors *metrics.Collectors) (*xcs.Client, error) {
	return xcs.New(xcs.Options{
		StoreKind: a.cfg.Storage.Kind,
		DBPath:    a.cfg.Storage.SQLitePath,
		Logger:    a.logger,
		Metrics:   collectors,
	})
}
