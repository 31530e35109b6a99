package main

import (
	"github.com/spf13/cobra"

	"github.com/example/bank-ledger/internal/cli"
)

func newREPLCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Run the interactive menu (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, opts)
		},
	}
}

func runREPL(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	// Logs go to stderr so they never interleave with menu output on stdout.
	logger, err := newLogger(cmd.ErrOrStderr(), cfg, false)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	return cli.NewSession(a.ledger, cmd.InOrStdin(), cmd.OutOrStdout()).Run()
}
