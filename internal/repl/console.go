package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/issuepilot/issuepilot/internal/creation"
	"github.com/issuepilot/issuepilot/internal/recovery"
	"github.com/issuepilot/issuepilot/internal/types"
)

// LineReader reads one line of user input after showing prompt
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// ChooseFunc asks the user to pick one duplicate decision
type ChooseFunc func(title string, options []huh.Option[types.Decision]) (types.Decision, error)

// Console is the terminal side of the retry controller and the creation
// workflow. It asks yes/no questions over a LineReader and offers the
// duplicate decision as a select.
type Console struct {
	out    io.Writer
	mu     sync.Mutex
	in     LineReader
	choose ChooseFunc
}

var (
	_ recovery.Prompter  = (*Console)(nil)
	_ creation.Presenter = (*Console)(nil)
)

// NewConsole creates a console writing to out and reading from in.
// A nil choose uses a huh select.
func NewConsole(out io.Writer, in LineReader, choose ChooseFunc) *Console {
	if choose == nil {
		choose = huhChoose
	}
	return &Console{out: out, in: in, choose: choose}
}

// SetInput swaps the line reader, e.g. once the REPL owns the terminal
func (c *Console) SetInput(in LineReader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.in = in
}

func (c *Console) reader() LineReader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.in
}

// ShowError prints a classified error and its remediation hints
func (c *Console) ShowError(e *recovery.AppError, hints []string) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(c.out, "\n%s %s\n", red(kindTitle(e.Kind)+":"), e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(c.out, "   %s %d\n", gray("Status:"), e.StatusCode)
	}
	for _, hint := range hints {
		fmt.Fprintf(c.out, "   • %s\n", hint)
	}
}

// ConfirmRetry asks whether to retry after a failure
func (c *Console) ConfirmRetry(ctx context.Context, e *recovery.AppError, attempt, maxRetries int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	yellow := color.New(color.FgYellow).SprintFunc()
	return c.confirm(fmt.Sprintf("%s Retry? (attempt %d/%d) [y/N] ", yellow("?"), attempt, maxRetries))
}

// Countdown shows the remaining wait before a retry
func (c *Console) Countdown(remaining time.Duration) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Fprintf(c.out, "%s\n", gray(fmt.Sprintf("Retrying in %ds...", int(remaining.Round(time.Second).Seconds()))))
}

// Present renders the analysis and asks what to do about the matches
func (c *Console) Present(ctx context.Context, draft types.IssueDraft, analysis *types.DuplicateAnalysis) (types.Decision, error) {
	RenderAnalysis(c.out, analysis)

	options := []huh.Option[types.Decision]{
		huh.NewOption("Create it anyway", types.DecisionProceed),
		huh.NewOption("Review the matches in detail first", types.DecisionProceedAfterReview),
		huh.NewOption("Cancel", types.DecisionCancel),
		huh.NewOption("Start over with a more specific description", types.DecisionRestart),
	}
	decision, err := c.choose(fmt.Sprintf("Potential duplicates found for %q", draft.Summary), options)
	if err != nil {
		if err == huh.ErrUserAborted {
			return types.DecisionCancel, nil
		}
		return "", err
	}
	return decision, nil
}

// ConfirmAfterReview shows every match in full and asks again
func (c *Console) ConfirmAfterReview(ctx context.Context, draft types.IssueDraft, analysis *types.DuplicateAnalysis) (bool, error) {
	RenderDetails(c.out, analysis)
	return c.confirm(fmt.Sprintf("Create %q anyway? [y/N] ", draft.Summary))
}

func (c *Console) confirm(prompt string) (bool, error) {
	in := c.reader()
	if in == nil {
		return false, fmt.Errorf("no input available")
	}
	answer, err := in.ReadLine(prompt)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func huhChoose(title string, options []huh.Option[types.Decision]) (types.Decision, error) {
	var decision types.Decision
	err := huh.NewSelect[types.Decision]().
		Title(title).
		Description("What would you like to do?").
		Options(options...).
		Value(&decision).
		Run()
	return decision, err
}

// readlineReader adapts a readline instance, restoring the shell prompt
// after each question
type readlineReader struct {
	rl     *readline.Instance
	prompt string
}

func (r *readlineReader) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	defer r.rl.SetPrompt(r.prompt)
	return r.rl.Readline()
}

// StreamReader reads lines from a plain stream, for non-interactive use
type StreamReader struct {
	out     io.Writer
	scanner *bufio.Scanner
}

// NewStreamReader creates a LineReader over in, echoing prompts to out
func NewStreamReader(in io.Reader, out io.Writer) *StreamReader {
	return &StreamReader{out: out, scanner: bufio.NewScanner(in)}
}

func (s *StreamReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

func kindTitle(k recovery.ErrorKind) string {
	switch k {
	case recovery.KindNetwork:
		return "Network error"
	case recovery.KindAuthentication:
		return "Authentication error"
	case recovery.KindValidation:
		return "Invalid input"
	case recovery.KindRemoteAPI:
		return "Tracker error"
	case recovery.KindGenerationService:
		return "AI service error"
	default:
		return "Error"
	}
}
