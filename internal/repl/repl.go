package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/issuepilot/issuepilot/internal/cost"
	"github.com/issuepilot/issuepilot/internal/creation"
	"github.com/issuepilot/issuepilot/internal/recovery"
	"github.com/issuepilot/issuepilot/internal/search"
	"github.com/issuepilot/issuepilot/internal/types"
)

// CandidateSearcher finds existing issues for a project
type CandidateSearcher interface {
	Search(ctx context.Context, projectKey, title, description string) search.Result
}

// IssueCreator runs the full creation workflow for a draft
type IssueCreator interface {
	Create(ctx context.Context, draft types.IssueDraft) (creation.Outcome, *types.CreateResult, error)
}

// UsageReporter reports generation service usage for the session
type UsageReporter interface {
	Stats() cost.Stats
}

// DraftForm collects issue fields from the user, starting from initial
type DraftForm func(initial types.IssueDraft) (types.IssueDraft, error)

// REPL represents the interactive shell
type REPL struct {
	console   *Console
	searcher  CandidateSearcher
	checker   creation.DuplicateChecker
	creator   IssueCreator
	usage     UsageReporter
	form      DraftForm
	sessionID string
	logger    *slog.Logger
	out       io.Writer
	rl        *readline.Instance
	ctx       context.Context
	commands  map[string]CommandHandler
}

// CommandHandler handles a specific command
type CommandHandler func(args []string) error

// Config holds REPL configuration
type Config struct {
	Console   *Console
	Searcher  CandidateSearcher
	Checker   creation.DuplicateChecker
	Creator   IssueCreator
	Usage     UsageReporter // optional
	Form      DraftForm     // default: interactive huh form
	SessionID string        // default: random
	Logger    *slog.Logger
	Out       io.Writer // default: stdout
}

// New creates a new REPL instance
func New(cfg *Config) (*REPL, error) {
	if cfg.Console == nil {
		return nil, fmt.Errorf("console is required")
	}
	if cfg.Searcher == nil || cfg.Checker == nil || cfg.Creator == nil {
		return nil, fmt.Errorf("searcher, checker and creator are required")
	}

	r := &REPL{
		console:   cfg.Console,
		searcher:  cfg.Searcher,
		checker:   cfg.Checker,
		creator:   cfg.Creator,
		usage:     cfg.Usage,
		form:      cfg.Form,
		sessionID: cfg.SessionID,
		logger:    cfg.Logger,
		out:       cfg.Out,
		ctx:       context.Background(),
		commands:  make(map[string]CommandHandler),
	}
	if r.form == nil {
		r.form = DraftFormInteractive
	}
	if r.sessionID == "" {
		r.sessionID = NewSessionID()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("session", r.sessionID)
	if r.out == nil {
		r.out = os.Stdout
	}

	r.registerCommands()
	return r, nil
}

// NewSessionID returns a short random session identifier
func NewSessionID() string {
	return uuid.New().String()[:8]
}

// SessionID returns the session identifier
func (r *REPL) SessionID() string {
	return r.sessionID
}

// Run starts the REPL loop
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	prompt := cyan("issuepilot> ")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            r.out,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	r.rl = rl
	r.console.SetInput(&readlineReader{rl: rl, prompt: prompt})

	r.printWelcome()
	r.logger.Info("session started")

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			} else if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.processInput(line); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			r.printError(err)
		}
	}
}

// processInput processes a single line of input
func (r *REPL) processInput(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	if handler, ok := r.commands[command]; ok {
		return handler(args)
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(r.out, "%s Unknown command %q. Use 'help' for available commands.\n", yellow("Note:"), parts[0])
	return nil
}

func (r *REPL) printError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	var appErr *recovery.AppError
	if errors.As(err, &appErr) && appErr.Kind == recovery.KindValidation {
		fmt.Fprintf(r.out, "%s %s\n", red("Invalid input:"), appErr.Message)
		return
	}
	fmt.Fprintf(r.out, "%s %v\n", red("Error:"), err)
}

// registerCommands registers all built-in commands
func (r *REPL) registerCommands() {
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["search"] = r.cmdSearch
	r.commands["check"] = r.cmdCheck
	r.commands["create"] = r.cmdCreate
	r.commands["usage"] = r.cmdUsage
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
}

func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Fprintf(r.out, "\n%s %s\n", cyan("issuepilot"), gray("session "+r.sessionID))
	fmt.Fprintln(r.out, "Search Jira and create issues without filing duplicates")
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'exit' to quit")
	fmt.Fprintln(r.out)
}

// cmdHelp shows help information
func (r *REPL) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Fprintf(r.out, "\n%s\n\n", cyan("Available Commands:"))
	commands := []struct {
		name string
		desc string
	}{
		{"search <PROJECT> <text>", "Find existing issues matching the text"},
		{"check <PROJECT> <title>", "Check a proposed title for duplicates"},
		{"create <PROJECT>", "Create an issue (runs a duplicate check first)"},
		{"usage", "Show generation service usage for this session"},
		{"help, ?", "Show this help message"},
		{"exit, quit", "Exit the REPL"},
	}
	for _, cmd := range commands {
		fmt.Fprintf(r.out, "  %-26s %s\n", green(cmd.name), cmd.desc)
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *REPL) cmdSearch(args []string) error {
	if len(args) < 2 {
		return recovery.NewValidationError("usage: search <PROJECT> <text>")
	}
	project := strings.ToUpper(args[0])
	text := strings.Join(args[1:], " ")

	result := r.searcher.Search(r.ctx, project, text, "")
	RenderSearch(r.out, result)
	return nil
}

func (r *REPL) cmdCheck(args []string) error {
	if len(args) < 2 {
		return recovery.NewValidationError("usage: check <PROJECT> <title>")
	}
	project := strings.ToUpper(args[0])
	title := strings.Join(args[1:], " ")

	analysis := r.checker.CheckForDuplicates(r.ctx, project, title, "")
	RenderAnalysis(r.out, analysis)
	return nil
}

func (r *REPL) cmdCreate(args []string) error {
	if len(args) < 1 {
		return recovery.NewValidationError("usage: create <PROJECT>")
	}
	draft := types.IssueDraft{ProjectKey: strings.ToUpper(args[0])}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	for {
		filled, err := r.form(draft)
		if err != nil {
			if errors.Is(err, ErrFormAborted) {
				fmt.Fprintf(r.out, "%s Issue creation cancelled.\n", yellow("Note:"))
				return nil
			}
			return err
		}
		draft = filled

		outcome, result, err := r.creator.Create(r.ctx, draft)
		if err != nil {
			return err
		}

		switch outcome {
		case creation.OutcomeCreated:
			fmt.Fprintf(r.out, "\n%s Created %s\n", green("✓"), result.Key)
			if result.Message != "" {
				fmt.Fprintf(r.out, "  %s\n", result.Message)
			}
			return nil
		case creation.OutcomeCancelled:
			fmt.Fprintf(r.out, "%s Issue creation cancelled.\n", yellow("Note:"))
			return nil
		case creation.OutcomeRestart:
			fmt.Fprintf(r.out, "%s Add detail that sets this issue apart from the matches.\n", yellow("Note:"))
			continue
		default:
			return fmt.Errorf("issue was not created (%s)", outcome)
		}
	}
}

func (r *REPL) cmdUsage(args []string) error {
	if r.usage == nil {
		fmt.Fprintln(r.out, "Usage tracking is not enabled.")
		return nil
	}
	RenderUsage(r.out, r.usage.Stats())
	return nil
}

// cmdExit exits the REPL
func (r *REPL) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s Goodbye!\n", green("✓"))
	r.logger.Info("session ended")
	if r.rl != nil {
		r.rl.Close()
	}
	return io.EOF // Signal to exit the loop
}
