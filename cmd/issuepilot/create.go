package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/issuepilot/issuepilot/internal/creation"
	"github.com/issuepilot/issuepilot/internal/repl"
	"github.com/issuepilot/issuepilot/internal/types"
)

var createCmd = &cobra.Command{
	Use:   "create <PROJECT>",
	Short: "Create an issue after a duplicate check",
	Long: `Create an issue in the project. Without --summary an interactive form
collects the fields.

Example:
  issuepilot create APP
  issuepilot create APP -s "Login loops on Safari" -d "Okta SSO" -t Bug -p High`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, _ := cmd.Flags().GetString("summary")
		description, _ := cmd.Flags().GetString("description")
		issueType, _ := cmd.Flags().GetString("type")
		priority, _ := cmd.Flags().GetString("priority")
		assignee, _ := cmd.Flags().GetString("assignee")

		console := repl.NewConsole(os.Stdout, repl.NewStreamReader(os.Stdin, os.Stdout), nil)
		a, err := newApp(console, true)
		if err != nil {
			return err
		}

		draft := types.IssueDraft{
			ProjectKey:  strings.ToUpper(args[0]),
			IssueType:   issueType,
			Summary:     summary,
			Description: description,
			Priority:    priority,
			Assignee:    assignee,
		}
		if strings.TrimSpace(draft.Summary) == "" {
			draft, err = repl.DraftFormInteractive(draft)
			if err != nil {
				return err
			}
		}

		outcome, result, err := a.workflow.Create(context.Background(), draft)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		switch outcome {
		case creation.OutcomeCreated:
			fmt.Printf("%s Created %s\n", green("✓"), result.Key)
		case creation.OutcomeRestart:
			fmt.Println("Refine the summary and description, then run create again.")
		default:
			fmt.Println("Issue creation cancelled.")
		}
		return nil
	},
}

func init() {
	createCmd.Flags().StringP("summary", "s", "", "Issue summary")
	createCmd.Flags().StringP("description", "d", "", "Issue description")
	createCmd.Flags().StringP("type", "t", "", "Issue type (default: Task)")
	createCmd.Flags().StringP("priority", "p", "", "Priority (default: Medium)")
	createCmd.Flags().StringP("assignee", "a", "", "Assignee username")
	rootCmd.AddCommand(createCmd)
}
