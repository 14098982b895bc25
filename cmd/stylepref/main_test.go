package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/manash/stylepref/internal/client"
	"github.com/manash/stylepref/internal/history"
	"github.com/manash/stylepref/internal/state"
)

// resetFlags resets all global flags to their default values.
func resetFlags() {
	flagBaseURL = ""
	flagAccessID = ""
	flagGender = ""
	flagTimeout = 0
	flagVerbose = false
	flagNoHistory = false
}

func testApp(t *testing.T, env map[string]string) (*App, *bytes.Buffer, *state.MemStore) {
	t.Helper()
	resetFlags()

	out := &bytes.Buffer{}
	store := state.NewMemStore()

	app := &App{
		In:  strings.NewReader(""),
		Out: out,
		Err: &bytes.Buffer{},
		GetEnv: func(key string) string {
			return env[key]
		},
		NewStore: func() (state.Store, error) {
			return store, nil
		},
		NewHistory: func() (*history.Store, error) {
			return nil, fmt.Errorf("disabled in tests")
		},
		NewClient: func(cfg *client.Config) (*client.Client, error) {
			cfg.SettleDelay = time.Millisecond
			return client.New(cfg)
		},
		ReadPassword: func(fd int) ([]byte, error) {
			return nil, fmt.Errorf("no terminal in tests")
		},
	}
	return app, out, store
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	app, _, _ := testApp(t, nil)
	cmd := newRootCmd(app)

	for _, name := range []string{"login", "health", "profile", "logout"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestHealthCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	app, out, _ := testApp(t, map[string]string{"STYLEPREF_BASE_URL": server.URL})
	cmd := newRootCmd(app)
	cmd.SetArgs([]string{"health"})
	cmd.SetOut(out)
	cmd.SetErr(out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "API status: ok") {
		t.Errorf("output = %q, want status line", out.String())
	}
}

func TestHealthCommand_MissingBaseURL(t *testing.T) {
	app, out, _ := testApp(t, nil)
	cmd := newRootCmd(app)
	cmd.SetArgs([]string{"health"})
	cmd.SetOut(out)
	cmd.SetErr(out)

	err := cmd.Execute()
	if err == nil {
		t.Fatal("Execute() error = nil, want base URL error")
	}
	if !strings.Contains(err.Error(), "base URL required") {
		t.Errorf("error = %v, want base URL message", err)
	}
}

func TestLoginCommand_FlagAccessID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req["access_id"] != "access-1" {
			t.Errorf("access_id = %v, want access-1", req["access_id"])
		}
		if req["gender"] != "female" {
			t.Errorf("gender = %v, want female", req["gender"])
		}
		w.Write([]byte(`{"preference_id":"pref-1","ai_id":"ai-1"}`))
	}))
	defer server.Close()

	app, out, store := testApp(t, map[string]string{"STYLEPREF_BASE_URL": server.URL})
	cmd := newRootCmd(app)
	cmd.SetArgs([]string{"login", "--access-id", "access-1", "--gender", "female"})
	cmd.SetOut(out)
	cmd.SetErr(out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "Session created") {
		t.Errorf("output = %q, want confirmation", out.String())
	}
	if v, _ := store.Get("ai_id"); v != "ai-1" {
		t.Errorf("persisted ai_id = %v, want ai-1", v)
	}
}

func TestLoginCommand_EnvAccessID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["access_id"] != "from-env" {
			t.Errorf("access_id = %v, want from-env", req["access_id"])
		}
		w.Write([]byte(`{"preference_id":"pref-1","ai_id":"ai-1"}`))
	}))
	defer server.Close()

	app, out, _ := testApp(t, map[string]string{
		"STYLEPREF_BASE_URL":  server.URL,
		"STYLEPREF_ACCESS_ID": "from-env",
	})
	cmd := newRootCmd(app)
	cmd.SetArgs([]string{"login"})
	cmd.SetOut(out)
	cmd.SetErr(out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestLoginCommand_PromptedAccessID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["access_id"] != "typed-secret" {
			t.Errorf("access_id = %v, want typed-secret", req["access_id"])
		}
		w.Write([]byte(`{"preference_id":"pref-1","ai_id":"ai-1"}`))
	}))
	defer server.Close()

	app, out, _ := testApp(t, map[string]string{"STYLEPREF_BASE_URL": server.URL})
	app.ReadPassword = func(fd int) ([]byte, error) {
		return []byte("typed-secret\n"), nil
	}

	cmd := newRootCmd(app)
	cmd.SetArgs([]string{"login"})
	cmd.SetOut(out)
	cmd.SetErr(out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestLoginCommand_AuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid access ID"}`))
	}))
	defer server.Close()

	app, out, _ := testApp(t, map[string]string{"STYLEPREF_BASE_URL": server.URL})
	cmd := newRootCmd(app)
	cmd.SetArgs([]string{"login", "--access-id", "bad"})
	cmd.SetOut(out)
	cmd.SetErr(out)

	err := cmd.Execute()
	if err == nil {
		t.Fatal("Execute() error = nil, want authentication error")
	}
	if !strings.Contains(err.Error(), "invalid access ID") {
		t.Errorf("error = %v, want server text", err)
	}
}

func TestLogoutCommand(t *testing.T) {
	app, out, store := testApp(t, map[string]string{"STYLEPREF_BASE_URL": "https://api.example.com"})
	store.Set("ai_id", "ai-1")
	store.Set("preference_id", "pref-1")
	store.Set("current_iteration", "9")

	cmd := newRootCmd(app)
	cmd.SetArgs([]string{"logout"})
	cmd.SetOut(out)
	cmd.SetErr(out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, key := range []string{"ai_id", "preference_id", "current_iteration"} {
		if v, _ := store.Get(key); v != "" {
			t.Errorf("store still holds %s = %q after logout", key, v)
		}
	}
}

func TestProfileCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"top_styles":{"vintage":0.8},"selection_history":[{"iteration":1,"feedback":"like"}]}`))
	}))
	defer server.Close()

	app, out, store := testApp(t, map[string]string{"STYLEPREF_BASE_URL": server.URL})
	store.Set("ai_id", "ai-1")
	store.Set("preference_id", "pref-1")

	cmd := newRootCmd(app)
	cmd.SetArgs([]string{"profile"})
	cmd.SetOut(out)
	cmd.SetErr(out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "vintage") {
		t.Errorf("output = %q, want style listing", out.String())
	}
	if !strings.Contains(out.String(), "Selections recorded: 1") {
		t.Errorf("output = %q, want selection count", out.String())
	}
}

func TestProfileCommand_NotAuthenticated(t *testing.T) {
	app, out, _ := testApp(t, map[string]string{"STYLEPREF_BASE_URL": "https://api.example.com"})
	cmd := newRootCmd(app)
	cmd.SetArgs([]string{"profile"})
	cmd.SetOut(out)
	cmd.SetErr(out)

	if err := cmd.Execute(); err == nil {
		t.Fatal("Execute() error = nil without session, want error")
	}
}

func TestRootCommand_RunsREPL(t *testing.T) {
	app, out, _ := testApp(t, map[string]string{"STYLEPREF_BASE_URL": "https://api.example.com"})
	cmd := newRootCmd(app)
	cmd.SetArgs([]string{"--no-history"})
	cmd.SetOut(out)
	cmd.SetErr(out)

	// Empty stdin: the REPL prints its banner and exits immediately
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "stylepref interactive mode") {
		t.Errorf("output = %q, want REPL banner", out.String())
	}
}
