package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manash/stylepref/internal/client"
	"github.com/manash/stylepref/internal/history"
)

// Client is the slice of the session client the REPL drives.
type Client interface {
	IsAuthenticated() bool
	State() client.SessionState
	CurrentIteration() int
	AIID() string
	PreferenceID() string
	SubmitFeedback(ctx context.Context, opts client.FeedbackOptions) (*client.IterationResult, error)
	SaveProfile(ctx context.Context) (*client.SaveResult, error)
	GetProfile(ctx context.Context) (*client.Profile, error)
	DownloadImage(ctx context.Context, url string) ([]byte, error)
	ClearSessionData() error
}

type REPL struct {
	in       io.Reader
	out      io.Writer
	err      io.Writer
	client   Client
	hist     *history.Store
	commands map[string]Command
	running  bool

	// last successful iteration result, shown by status and saved by save
	lastResult *client.IterationResult
	// final choice staged by pick, attached once the walk reaches its
	// last iteration
	finalStyle    string
	finalImageKey string
}

type Config struct {
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	Client  Client
	History *history.Store // optional, nil disables the local feedback log
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:       cfg.In,
		out:      cfg.Out,
		err:      cfg.Err,
		client:   cfg.Client,
		hist:     cfg.History,
		commands: make(map[string]Command),
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "stylepref interactive mode")
	fmt.Fprintln(r.out, "Rate each candidate with 'like' or 'dislike'; type 'help' for all commands.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	switch r.client.State() {
	case client.StateInProgress:
		fmt.Fprintf(r.out, "stylepref [%d/%d]> ", r.client.CurrentIteration(), client.MaxIterations)
	case client.StateCompleted:
		fmt.Fprint(r.out, "stylepref [done]> ")
	default:
		fmt.Fprint(r.out, "stylepref> ")
	}
}
