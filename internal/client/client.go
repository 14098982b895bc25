// Package client implements the session client for the remote
// preference-learning API: it owns the session identity, walks the fixed
// 30-step feedback loop, and retrieves the derived style profile, smoothing
// over the API's inconsistent completion and recovery responses.
package client

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/manash/stylepref/internal/state"
)

const (
	// MaxIterations is the fixed length of the feedback loop.
	MaxIterations = 30

	FeedbackLike    = "like"
	FeedbackDislike = "dislike"

	defaultTimeout     = 60 * time.Second
	defaultSettleDelay = time.Second

	authHeader = "AI-ID"

	keyAIID             = "ai_id"
	keyPreferenceID     = "preference_id"
	keyCurrentIteration = "current_iteration"
)

// Doer performs HTTP requests. *http.Client satisfies it; tests substitute
// transports that fail in controlled ways.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL     string
	TimeoutSec  int
	HTTPClient  Doer        // defaults to *http.Client with the configured timeout
	Store       state.Store // defaults to an in-memory store
	SettleDelay time.Duration
	Verbose     bool
}

// SessionState is the explicit phase of the feedback walk, derived from the
// session tokens and the iteration counter.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateInProgress
	StateCompleted
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateInProgress:
		return "in progress"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Session holds the two opaque identifiers issued by the API. They exist
// together or not at all.
type Session struct {
	AIID         string
	PreferenceID string
}

// IterationResult is the outcome of one feedback submission. ImageURL is
// empty on the synthesized terminal results.
type IterationResult struct {
	ImageURL  string
	Iteration int
	Completed bool
	Style     string
	ImageKey  string
}

type Client struct {
	baseURL     string
	httpClient  Doer
	store       state.Store
	settleDelay time.Duration
	verbose     bool

	aiID             string
	preferenceID     string
	currentIteration int
}

// New creates a client and loads any persisted session from the store, so a
// restarted process resumes where the previous one left off.
func New(cfg *Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}

	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	store := cfg.Store
	if store == nil {
		store = state.NewMemStore()
	}

	settleDelay := cfg.SettleDelay
	if settleDelay == 0 {
		settleDelay = defaultSettleDelay
	}

	c := &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:  httpClient,
		store:       store,
		settleDelay: settleDelay,
		verbose:     cfg.Verbose,
	}

	if err := c.loadPersisted(); err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}
	return c, nil
}

func (c *Client) loadPersisted() error {
	aiID, err := c.store.Get(keyAIID)
	if err != nil {
		return err
	}
	preferenceID, err := c.store.Get(keyPreferenceID)
	if err != nil {
		return err
	}
	iterText, err := c.store.Get(keyCurrentIteration)
	if err != nil {
		return err
	}

	c.aiID = aiID
	c.preferenceID = preferenceID
	c.currentIteration = 0
	if iterText != "" {
		n, err := strconv.Atoi(iterText)
		if err == nil && n >= 0 {
			c.currentIteration = n
		}
	}
	return nil
}

func (c *Client) AIID() string         { return c.aiID }
func (c *Client) PreferenceID() string { return c.preferenceID }
func (c *Client) CurrentIteration() int {
	return c.currentIteration
}

func (c *Client) IsAuthenticated() bool {
	return c.aiID != "" && c.preferenceID != ""
}

func (c *Client) State() SessionState {
	if !c.IsAuthenticated() {
		return StateUnauthenticated
	}
	if c.currentIteration >= MaxIterations {
		return StateCompleted
	}
	return StateInProgress
}

// SetSessionData replaces the session tokens and persists them.
func (c *Client) SetSessionData(aiID, preferenceID string) error {
	c.aiID = aiID
	c.preferenceID = preferenceID
	if err := c.store.Set(keyAIID, aiID); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	if err := c.store.Set(keyPreferenceID, preferenceID); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// SetCurrentIteration sets the iteration counter and persists it.
func (c *Client) SetCurrentIteration(n int) error {
	c.currentIteration = n
	if err := c.store.Set(keyCurrentIteration, strconv.Itoa(n)); err != nil {
		return fmt.Errorf("failed to persist iteration: %w", err)
	}
	return nil
}

// ClearSessionData drops the session and its persisted keys.
func (c *Client) ClearSessionData() error {
	c.aiID = ""
	c.preferenceID = ""
	c.currentIteration = 0
	for _, key := range []string{keyAIID, keyPreferenceID, keyCurrentIteration} {
		if err := c.store.Remove(key); err != nil {
			return fmt.Errorf("failed to clear persisted session: %w", err)
		}
	}
	return nil
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
