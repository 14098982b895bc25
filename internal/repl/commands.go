package repl

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/manash/stylepref/internal/client"
	"github.com/manash/stylepref/internal/history"
	"github.com/manash/stylepref/internal/security"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func (r *REPL) registerCommands() {
	commands := []Command{
		&NextCommand{},
		&LikeCommand{},
		&DislikeCommand{},
		&PickCommand{},
		&StatusCommand{},
		&SaveCommand{},
		&ProfileCommand{},
		&SaveProfileCommand{},
		&HistoryCommand{},
		&ResetCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}

	for _, cmd := range commands {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// submit sends one feedback decision, logs it locally, and prints the next
// candidate.
func (r *REPL) submit(ctx context.Context, feedback string) error {
	if !r.client.IsAuthenticated() {
		return fmt.Errorf("no active session: run 'stylepref login' first")
	}

	opts := client.FeedbackOptions{Feedback: feedback}
	if r.finalStyle != "" && r.finalImageKey != "" {
		opts.Style = r.finalStyle
		opts.ImageKey = r.finalImageKey
	}

	result, err := r.client.SubmitFeedback(ctx, opts)
	if err != nil {
		return err
	}
	r.lastResult = result

	r.record(ctx, feedback, result)

	if result.Completed {
		fmt.Fprintf(r.out, "Walk complete at iteration %d. Run 'saveprofile' to store your profile.\n", result.Iteration)
		return nil
	}

	fmt.Fprintf(r.out, "Iteration %d/%d\n", result.Iteration, client.MaxIterations)
	fmt.Fprintf(r.out, "Candidate: %s\n", result.ImageURL)
	if result.Style != "" {
		fmt.Fprintf(r.out, "Style: %s\n", result.Style)
	}
	return nil
}

func (r *REPL) record(ctx context.Context, feedback string, result *client.IterationResult) {
	if r.hist == nil {
		return
	}

	now := time.Now()
	sess := &history.WalkSession{
		PreferenceID: r.client.PreferenceID(),
		AIID:         r.client.AIID(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Completed:    result.Completed,
	}
	if err := r.hist.UpsertSession(ctx, sess); err != nil {
		fmt.Fprintf(r.err, "Warning: failed to update local history: %v\n", err)
		return
	}

	event := &history.FeedbackEvent{
		PreferenceID: r.client.PreferenceID(),
		Iteration:    result.Iteration,
		Feedback:     feedback,
		Style:        result.Style,
		ImageKey:     result.ImageKey,
		ImageURL:     result.ImageURL,
	}
	if err := r.hist.RecordFeedback(ctx, event); err != nil {
		fmt.Fprintf(r.err, "Warning: failed to record feedback locally: %v\n", err)
	}
}

// NextCommand fetches the first candidate without rating anything
type NextCommand struct{}

func (c *NextCommand) Name() string        { return "next" }
func (c *NextCommand) Aliases() []string   { return []string{"start", "n"} }
func (c *NextCommand) Description() string { return "Fetch the first candidate image" }
func (c *NextCommand) Usage() string       { return "next" }

func (c *NextCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	// No prior image to react to; the API treats the omitted rating as a
	// dislike.
	return r.submit(ctx, "")
}

// LikeCommand rates the current candidate positively
type LikeCommand struct{}

func (c *LikeCommand) Name() string        { return "like" }
func (c *LikeCommand) Aliases() []string   { return []string{"l", "+"} }
func (c *LikeCommand) Description() string { return "Like the current candidate and fetch the next one" }
func (c *LikeCommand) Usage() string       { return "like" }

func (c *LikeCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	return r.submit(ctx, client.FeedbackLike)
}

// DislikeCommand rates the current candidate negatively
type DislikeCommand struct{}

func (c *DislikeCommand) Name() string        { return "dislike" }
func (c *DislikeCommand) Aliases() []string   { return []string{"d", "-"} }
func (c *DislikeCommand) Description() string { return "Dislike the current candidate and fetch the next one" }
func (c *DislikeCommand) Usage() string       { return "dislike" }

func (c *DislikeCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	return r.submit(ctx, client.FeedbackDislike)
}

// PickCommand stages the final style choice for the last iteration
type PickCommand struct{}

func (c *PickCommand) Name() string      { return "pick" }
func (c *PickCommand) Aliases() []string { return []string{"choose"} }
func (c *PickCommand) Description() string {
	return "Stage the chosen style and image key, recorded on the final iteration"
}
func (c *PickCommand) Usage() string { return "pick <style> <image-key>" }

func (c *PickCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	r.finalStyle = args[0]
	r.finalImageKey = args[1]
	fmt.Fprintf(r.out, "Final choice staged: style=%s key=%s\n", r.finalStyle, r.finalImageKey)
	return nil
}

// StatusCommand shows the session and walk state
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Aliases() []string   { return []string{"st"} }
func (c *StatusCommand) Description() string { return "Show session state and walk progress" }
func (c *StatusCommand) Usage() string       { return "status" }

func (c *StatusCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintf(r.out, "State: %s\n", r.client.State())
	if !r.client.IsAuthenticated() {
		return nil
	}

	fmt.Fprintf(r.out, "Preference ID: %s\n", r.client.PreferenceID())
	fmt.Fprintf(r.out, "Iteration: %d/%d\n", r.client.CurrentIteration(), client.MaxIterations)
	if r.lastResult != nil && r.lastResult.ImageURL != "" {
		fmt.Fprintf(r.out, "Current candidate: %s\n", r.lastResult.ImageURL)
	}
	if r.finalStyle != "" {
		fmt.Fprintf(r.out, "Staged final choice: style=%s key=%s\n", r.finalStyle, r.finalImageKey)
	}
	return nil
}

// SaveCommand downloads the current candidate image to disk
type SaveCommand struct{}

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Aliases() []string   { return []string{"s"} }
func (c *SaveCommand) Description() string { return "Download the current candidate image" }
func (c *SaveCommand) Usage() string       { return "save [filename]" }

func (c *SaveCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if r.lastResult == nil || r.lastResult.ImageURL == "" {
		return fmt.Errorf("no candidate image to save")
	}

	path := fmt.Sprintf("candidate-%d.png", r.lastResult.Iteration)
	if len(args) > 0 {
		path = args[0]
	}
	if err := security.ValidateSavePath(path); err != nil {
		return err
	}
	if err := security.ValidateImageURL(r.lastResult.ImageURL); err != nil {
		return err
	}

	data, err := r.client.DownloadImage(ctx, r.lastResult.ImageURL)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Fprintf(r.out, "Saved: %s\n", path)
	return nil
}

// ProfileCommand fetches and prints the learned profile
type ProfileCommand struct{}

func (c *ProfileCommand) Name() string        { return "profile" }
func (c *ProfileCommand) Aliases() []string   { return []string{"p"} }
func (c *ProfileCommand) Description() string { return "Fetch the learned preference profile" }
func (c *ProfileCommand) Usage() string       { return "profile" }

func (c *ProfileCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	profile, err := r.client.GetProfile(ctx)
	if err != nil {
		return err
	}

	if !profile.Fetched {
		fmt.Fprintln(r.out, "Profile not ready yet. Submit more feedback and try again.")
		return nil
	}

	if len(profile.TopStyles) == 0 {
		fmt.Fprintln(r.out, "Profile is empty so far.")
	} else {
		fmt.Fprintln(r.out, "Top styles:")
		styles := make([]string, 0, len(profile.TopStyles))
		for style := range profile.TopStyles {
			styles = append(styles, style)
		}
		sort.Slice(styles, func(i, j int) bool {
			return profile.TopStyles[styles[i]] > profile.TopStyles[styles[j]]
		})
		for _, style := range styles {
			fmt.Fprintf(r.out, "  %-20s %.2f\n", style, profile.TopStyles[style])
		}
	}

	fmt.Fprintf(r.out, "Selections recorded: %d\n", len(profile.SelectionHistory))
	return nil
}

// SaveProfileCommand asks the API to persist the derived profile
type SaveProfileCommand struct{}

func (c *SaveProfileCommand) Name() string        { return "saveprofile" }
func (c *SaveProfileCommand) Aliases() []string   { return []string{"finish"} }
func (c *SaveProfileCommand) Description() string { return "Store the derived profile on the server" }
func (c *SaveProfileCommand) Usage() string       { return "saveprofile" }

func (c *SaveProfileCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	result, err := r.client.SaveProfile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, result.Message)
	return nil
}

// HistoryCommand lists the locally logged feedback for this walk
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Aliases() []string   { return []string{"h", "hist"} }
func (c *HistoryCommand) Description() string { return "Show locally logged feedback for this walk" }
func (c *HistoryCommand) Usage() string       { return "history" }

func (c *HistoryCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	if r.hist == nil {
		return fmt.Errorf("local history is disabled")
	}
	if !r.client.IsAuthenticated() {
		fmt.Fprintln(r.out, "No active session.")
		return nil
	}

	events, err := r.hist.ListFeedback(ctx, r.client.PreferenceID())
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Fprintln(r.out, "No feedback recorded yet.")
		return nil
	}

	fmt.Fprintf(r.out, "%-4s  %-8s  %-16s  %s\n", "Iter", "Rating", "When", "Image")
	fmt.Fprintln(r.out, strings.Repeat("-", 60))
	for _, event := range events {
		fmt.Fprintf(r.out, "%-4d  %-8s  %-16s  %s\n",
			event.Iteration, event.Feedback, humanize.Time(event.Timestamp), truncate(event.ImageURL, 40))
	}
	return nil
}

// ResetCommand clears the session and its persisted tokens
type ResetCommand struct{}

func (c *ResetCommand) Name() string        { return "reset" }
func (c *ResetCommand) Aliases() []string   { return []string{"logout"} }
func (c *ResetCommand) Description() string { return "Clear the session and persisted tokens" }
func (c *ResetCommand) Usage() string       { return "reset" }

func (c *ResetCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	if err := r.client.ClearSessionData(); err != nil {
		return err
	}
	r.lastResult = nil
	r.finalStyle = ""
	r.finalImageKey = ""
	fmt.Fprintln(r.out, "Session cleared.")
	return nil
}

// HelpCommand shows available commands
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	commands := []Command{
		&NextCommand{},
		&LikeCommand{},
		&DislikeCommand{},
		&PickCommand{},
		&StatusCommand{},
		&SaveCommand{},
		&ProfileCommand{},
		&SaveProfileCommand{},
		&HistoryCommand{},
		&ResetCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}

	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range commands {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-12s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "               Usage: %s\n", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
