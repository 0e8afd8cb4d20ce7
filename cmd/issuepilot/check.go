package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/issuepilot/issuepilot/internal/repl"
)

var (
	checkDescription string
	checkJSON        bool
)

var checkCmd = &cobra.Command{
	Use:   "check <PROJECT> <title...>",
	Short: "Check a proposed issue for duplicates",
	Long: `Search the project for issues similar to the given title and score them.

Example:
  issuepilot check APP "Login redirect loops on Safari"
  issuepilot check APP Login loops -d "Happens with Okta SSO" --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		console := repl.NewConsole(os.Stdout, repl.NewStreamReader(os.Stdin, os.Stdout), nil)
		a, err := newApp(console, true)
		if err != nil {
			return err
		}

		project := strings.ToUpper(args[0])
		title := strings.Join(args[1:], " ")
		analysis := a.dedup.CheckForDuplicates(context.Background(), project, title, checkDescription)

		if checkJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(analysis)
		}
		repl.RenderAnalysis(os.Stdout, analysis)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkDescription, "description", "d", "", "Description of the proposed issue")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the analysis as JSON")
	rootCmd.AddCommand(checkCmd)
}
