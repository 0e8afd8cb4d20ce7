package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/issuepilot/issuepilot/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start interactive REPL shell",
	Long: `Start an interactive shell for searching and creating issues.

Every 'create' runs a duplicate check first. When similar issues are
found you can create anyway, review them in detail, cancel, or start
over with a more specific description. Failed calls can be retried
from the prompt.

Type 'help' in the REPL for available commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		console := repl.NewConsole(os.Stdout, repl.NewStreamReader(os.Stdin, os.Stdout), nil)
		a, err := newApp(console, true)
		if err != nil {
			return err
		}

		r, err := repl.New(&repl.Config{
			Console:  console,
			Searcher: a.searcher,
			Checker:  a.dedup,
			Creator:  a.workflow,
			Usage:    a.budget,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create REPL: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return r.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
