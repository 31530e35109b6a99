package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/example/bank-ledger/internal/api"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}

			logger, err := newLogger(cmd.OutOrStdout(), cfg, true)
			if err != nil {
				return err
			}

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}

			deps := api.Dependencies{
				Logger:       logger,
				Ledger:       a.ledger,
				Metrics:      promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
				MaxBodyBytes: cfg.MaxBodyBytes,
			}
			if a.audit != nil {
				deps.Audit = a.audit
			}

			router, err := api.NewRouter(deps)
			if err != nil {
				return errors.Wrap(err, "failed to build router")
			}

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("bank ledger listening", "addr", cfg.HTTPAddr, "env", cfg.Environment, "audit", cfg.AuditEnabled)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server error", "error", err)
				return errors.Wrap(err, "listen error")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address; overrides BANK_HTTP_ADDR")
	return cmd
}
