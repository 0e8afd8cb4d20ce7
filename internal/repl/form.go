package repl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/issuepilot/issuepilot/internal/types"
)

// ErrFormAborted is returned when the user leaves the issue form
var ErrFormAborted = errors.New("issue form aborted")

// DraftFormInteractive collects a draft with a terminal form, prefilled
// from initial so a restart keeps what the user already typed
func DraftFormInteractive(initial types.IssueDraft) (types.IssueDraft, error) {
	draft := initial.WithDefaults()

	typeOptions := []huh.Option[string]{
		huh.NewOption("Task", "Task"),
		huh.NewOption("Bug", "Bug"),
		huh.NewOption("Story", "Story"),
		huh.NewOption("Epic", "Epic"),
	}
	priorityOptions := []huh.Option[string]{
		huh.NewOption("Highest", "Highest"),
		huh.NewOption("High", "High"),
		huh.NewOption("Medium (default)", "Medium"),
		huh.NewOption("Low", "Low"),
		huh.NewOption("Lowest", "Lowest"),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Summary").
				Description(fmt.Sprintf("One line describing the issue in %s (required)", draft.ProjectKey)).
				Placeholder("e.g., Login redirect loops on Safari with SSO").
				Value(&draft.Summary).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("summary is required")
					}
					if len(s) > 255 {
						return fmt.Errorf("summary must be 255 characters or less")
					}
					return nil
				}),

			huh.NewText().
				Title("Description").
				Description("Steps, expected and actual behavior").
				CharLimit(5000).
				Value(&draft.Description),

			huh.NewSelect[string]().
				Title("Type").
				Options(typeOptions...).
				Value(&draft.IssueType),

			huh.NewSelect[string]().
				Title("Priority").
				Options(priorityOptions...).
				Value(&draft.Priority),

			huh.NewInput().
				Title("Assignee").
				Description("Jira username (optional)").
				Value(&draft.Assignee),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return initial, ErrFormAborted
		}
		return initial, fmt.Errorf("form error: %w", err)
	}

	draft.Summary = strings.TrimSpace(draft.Summary)
	draft.Assignee = strings.TrimSpace(draft.Assignee)
	return draft, nil
}
