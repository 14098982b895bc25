package client

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/manash/stylepref/internal/state"
)

// fakeDoer counts transport calls and delegates to do when set.
type fakeDoer struct {
	calls int
	do    func(req *http.Request) (*http.Response, error)
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.calls++
	if f.do != nil {
		return f.do(req)
	}
	return nil, errors.New("unexpected transport call")
}

func testClient(t *testing.T, baseURL string, doer Doer) (*Client, state.Store) {
	t.Helper()
	store := state.NewMemStore()
	c, err := New(&Config{
		BaseURL:     baseURL,
		HTTPClient:  doer,
		Store:       store,
		SettleDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, store
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{
			name:    "valid config",
			cfg:     &Config{BaseURL: "https://api.example.com"},
			wantErr: nil,
		},
		{
			name:    "empty base URL",
			cfg:     &Config{},
			wantErr: ErrBaseURLRequired,
		},
		{
			name:    "custom timeout",
			cfg:     &Config{BaseURL: "https://api.example.com", TimeoutSec: 5},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatal("New() error = nil, want error")
				}
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v, want nil", err)
			}
			if c == nil {
				t.Fatal("New() returned nil client")
			}
		})
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, _ := testClient(t, "https://api.example.com/", nil)
	if c.baseURL != "https://api.example.com" {
		t.Errorf("baseURL = %v, want https://api.example.com", c.baseURL)
	}
}

func TestClient_SetSessionData_RoundTrip(t *testing.T) {
	store := state.NewMemStore()

	c1, err := New(&Config{BaseURL: "https://api.example.com", Store: store})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c1.SetSessionData("ai-1", "pref-1"); err != nil {
		t.Fatalf("SetSessionData() error = %v", err)
	}
	if err := c1.SetCurrentIteration(7); err != nil {
		t.Fatalf("SetCurrentIteration() error = %v", err)
	}

	// A fresh client against the same store resumes the session
	c2, err := New(&Config{BaseURL: "https://api.example.com", Store: store})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !c2.IsAuthenticated() {
		t.Error("IsAuthenticated() = false after round trip, want true")
	}
	if c2.AIID() != "ai-1" {
		t.Errorf("AIID() = %v, want ai-1", c2.AIID())
	}
	if c2.PreferenceID() != "pref-1" {
		t.Errorf("PreferenceID() = %v, want pref-1", c2.PreferenceID())
	}
	if c2.CurrentIteration() != 7 {
		t.Errorf("CurrentIteration() = %v, want 7", c2.CurrentIteration())
	}
}

func TestClient_ClearSessionData(t *testing.T) {
	c, store := testClient(t, "https://api.example.com", nil)

	if err := c.SetSessionData("ai-1", "pref-1"); err != nil {
		t.Fatalf("SetSessionData() error = %v", err)
	}
	if err := c.SetCurrentIteration(12); err != nil {
		t.Fatalf("SetCurrentIteration() error = %v", err)
	}

	if err := c.ClearSessionData(); err != nil {
		t.Fatalf("ClearSessionData() error = %v", err)
	}

	if c.IsAuthenticated() {
		t.Error("IsAuthenticated() = true after clear, want false")
	}
	if c.AIID() != "" || c.PreferenceID() != "" {
		t.Errorf("tokens = (%q, %q) after clear, want empty", c.AIID(), c.PreferenceID())
	}
	if c.CurrentIteration() != 0 {
		t.Errorf("CurrentIteration() = %v after clear, want 0", c.CurrentIteration())
	}

	for _, key := range []string{"ai_id", "preference_id", "current_iteration"} {
		value, err := store.Get(key)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", key, err)
		}
		if value != "" {
			t.Errorf("store still holds %s = %q after clear", key, value)
		}
	}
}

func TestClient_State(t *testing.T) {
	c, _ := testClient(t, "https://api.example.com", nil)

	if c.State() != StateUnauthenticated {
		t.Errorf("State() = %v, want %v", c.State(), StateUnauthenticated)
	}

	if err := c.SetSessionData("ai-1", "pref-1"); err != nil {
		t.Fatalf("SetSessionData() error = %v", err)
	}
	if c.State() != StateInProgress {
		t.Errorf("State() = %v, want %v", c.State(), StateInProgress)
	}

	if err := c.SetCurrentIteration(MaxIterations); err != nil {
		t.Fatalf("SetCurrentIteration() error = %v", err)
	}
	if c.State() != StateCompleted {
		t.Errorf("State() = %v, want %v", c.State(), StateCompleted)
	}
}

func TestSessionState_String(t *testing.T) {
	tests := []struct {
		state SessionState
		want  string
	}{
		{StateUnauthenticated, "unauthenticated"},
		{StateInProgress, "in progress"},
		{StateCompleted, "completed"},
		{SessionState(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %v, want %v", got, tt.want)
		}
	}
}

func TestNew_IgnoresCorruptIterationValue(t *testing.T) {
	store := state.NewMemStore()
	if err := store.Set("ai_id", "ai-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set("preference_id", "pref-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set("current_iteration", "not-a-number"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	c, err := New(&Config{BaseURL: "https://api.example.com", Store: store})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.CurrentIteration() != 0 {
		t.Errorf("CurrentIteration() = %v, want 0 for corrupt value", c.CurrentIteration())
	}
}

func TestServerErrorText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"bad input"}`, "bad input"},
		{"empty error field", `{"error":""}`, "Unknown error"},
		{"no error field", `{"message":"ok"}`, "Unknown error"},
		{"not JSON", `<html>oops</html>`, "Unknown error"},
		{"empty body", ``, "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := serverErrorText([]byte(tt.body)); got != tt.want {
				t.Errorf("serverErrorText() = %v, want %v", got, tt.want)
			}
		})
	}
}
