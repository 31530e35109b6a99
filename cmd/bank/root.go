package main

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/example/bank-ledger/internal/config"
	"github.com/example/bank-ledger/internal/ledger"
	"github.com/example/bank-ledger/internal/metrics"
	"github.com/example/bank-ledger/pkg/audit"
)

type rootOptions struct {
	envFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "bank",
		Short:        "In-memory bank ledger",
		Long:         "bank keeps savings, checking and business accounts in memory and serves them from an interactive menu or over HTTP.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(newREPLCmd(opts), newServeCmd(opts))
	return cmd
}

// app is the ledger together with the observers wired to it.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	ledger   *ledger.Ledger
	audit    *audit.ChainLogger
	registry *prometheus.Registry
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	collector, err := metrics.NewCollector(a.registry)
	if err != nil {
		return nil, errors.Wrap(err, "failed to register metrics")
	}

	opts := []ledger.Option{
		ledger.WithPolicy(cfg.Policy()),
		ledger.WithLogger(logger),
		ledger.WithObserver(collector),
	}
	if cfg.AuditEnabled {
		a.audit = audit.NewChainLogger()
		opts = append(opts, ledger.WithObserver(ledger.AuditObserver{Auditor: a.audit}))
	}

	a.ledger, err = ledger.NewLedger(opts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newLogger(w io.Writer, cfg *config.Config, json bool) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}
