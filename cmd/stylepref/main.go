package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/manash/stylepref/internal/client"
	"github.com/manash/stylepref/internal/history"
	"github.com/manash/stylepref/internal/repl"
	"github.com/manash/stylepref/internal/state"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagBaseURL   string
	flagAccessID  string
	flagGender    string
	flagTimeout   int
	flagVerbose   bool
	flagNoHistory bool
)

type App struct {
	In           io.Reader
	Out          io.Writer
	Err          io.Writer
	GetEnv       func(string) string
	NewStore     func() (state.Store, error)
	NewHistory   func() (*history.Store, error)
	NewClient    func(cfg *client.Config) (*client.Client, error)
	ReadPassword func(fd int) ([]byte, error)
}

func DefaultApp() *App {
	return &App{
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
		GetEnv: os.Getenv,
		NewStore: func() (state.Store, error) {
			return state.NewFileStore()
		},
		NewHistory:   history.NewStore,
		NewClient:    client.New,
		ReadPassword: term.ReadPassword,
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stylepref",
		Short: "Walk a preference-learning API's feedback loop from the terminal",
		Long: `stylepref is a client for a remote preference-learning API. It walks the
fixed 30-step like/dislike loop over candidate images and retrieves the
style profile the API derives from your choices.

Examples:
  stylepref login --gender female
  stylepref
  stylepref profile
  stylepref health`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, app)
		},
	}

	cmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "API base URL (defaults to STYLEPREF_BASE_URL)")
	cmd.PersistentFlags().IntVar(&flagTimeout, "timeout", 0, "request timeout in seconds")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "dump API requests and responses to stderr")
	cmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "disable the local feedback log")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newHealthCmd(app))
	cmd.AddCommand(newProfileCmd(app))
	cmd.AddCommand(newLogoutCmd(app))

	return cmd
}

func (app *App) buildClient() (*client.Client, error) {
	baseURL := flagBaseURL
	if baseURL == "" {
		baseURL = app.GetEnv("STYLEPREF_BASE_URL")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("API base URL required: set STYLEPREF_BASE_URL or use --base-url")
	}

	store, err := app.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	return app.NewClient(&client.Config{
		BaseURL:    baseURL,
		TimeoutSec: flagTimeout,
		Store:      store,
		Verbose:    flagVerbose,
	})
}

func runInteractive(_ *cobra.Command, app *App) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := app.buildClient()
	if err != nil {
		return err
	}

	var hist *history.Store
	if !flagNoHistory {
		hist, err = app.NewHistory()
		if err != nil {
			fmt.Fprintf(app.Err, "Warning: local history disabled: %v\n", err)
			hist = nil
		} else {
			defer hist.Close()
		}
	}

	r := repl.New(&repl.Config{
		In:      app.In,
		Out:     app.Out,
		Err:     app.Err,
		Client:  c,
		History: hist,
	})
	return r.Run(ctx)
}

func newLoginCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Create a new session on the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			c, err := app.buildClient()
			if err != nil {
				return err
			}

			accessID, err := app.resolveAccessID()
			if err != nil {
				return err
			}

			sess, err := c.Authenticate(ctx, accessID, flagGender)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "Session created (preference %s).\n", sess.PreferenceID)
			fmt.Fprintln(app.Out, "Run 'stylepref' to start rating candidates.")
			return nil
		},
	}

	cmd.Flags().StringVar(&flagAccessID, "access-id", "", "access ID (defaults to STYLEPREF_ACCESS_ID, prompts if unset)")
	cmd.Flags().StringVar(&flagGender, "gender", "", "gender used to seed the candidate pool")

	return cmd
}

// resolveAccessID picks the access ID from the flag, the environment, or an
// interactive hidden prompt, in that order.
func (app *App) resolveAccessID() (string, error) {
	if flagAccessID != "" {
		return flagAccessID, nil
	}
	if envID := app.GetEnv("STYLEPREF_ACCESS_ID"); envID != "" {
		return envID, nil
	}

	fmt.Fprint(app.Err, "Access ID: ")
	raw, err := app.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(app.Err)
	if err != nil {
		return "", fmt.Errorf("failed to read access ID: %w", err)
	}

	accessID := strings.TrimSpace(string(raw))
	if accessID == "" {
		return "", fmt.Errorf("access ID required: use --access-id or set STYLEPREF_ACCESS_ID")
	}
	return accessID, nil
}

func newHealthCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the API root",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			c, err := app.buildClient()
			if err != nil {
				return err
			}

			status, err := c.CheckHealth(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "API status: %s\n", status.Status)
			return nil
		},
	}
}

func newProfileCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Fetch the learned preference profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			c, err := app.buildClient()
			if err != nil {
				return err
			}

			profile, err := c.GetProfile(ctx)
			if err != nil {
				return err
			}

			if !profile.Fetched {
				fmt.Fprintln(app.Out, "Profile not ready yet.")
				return nil
			}

			printProfile(app.Out, profile)
			return nil
		},
	}
}

func printProfile(out io.Writer, profile *client.Profile) {
	if len(profile.TopStyles) == 0 {
		fmt.Fprintln(out, "Profile is empty so far.")
	} else {
		fmt.Fprintln(out, "Top styles:")
		styles := make([]string, 0, len(profile.TopStyles))
		for style := range profile.TopStyles {
			styles = append(styles, style)
		}
		sort.Slice(styles, func(i, j int) bool {
			return profile.TopStyles[styles[i]] > profile.TopStyles[styles[j]]
		})
		for _, style := range styles {
			fmt.Fprintf(out, "  %-20s %.2f\n", style, profile.TopStyles[style])
		}
	}
	fmt.Fprintf(out, "Selections recorded: %d\n", len(profile.SelectionHistory))
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.buildClient()
			if err != nil {
				return err
			}
			if err := c.ClearSessionData(); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, "Session cleared.")
			return nil
		},
	}
}
