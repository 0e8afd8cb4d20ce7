package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/issuepilot/issuepilot/internal/repl"
)

var searchCmd = &cobra.Command{
	Use:   "search <PROJECT> <text...>",
	Short: "Find existing issues matching some text",
	Long: `Extract keywords from the text and search the project for matching issues.

Works without an Anthropic API key; keywords then come from a local heuristic.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		console := repl.NewConsole(os.Stdout, nil, nil)
		a, err := newApp(console, false)
		if err != nil {
			return err
		}
		result := a.searcher.Search(context.Background(), strings.ToUpper(args[0]), strings.Join(args[1:], " "), "")
		repl.RenderSearch(os.Stdout, result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
