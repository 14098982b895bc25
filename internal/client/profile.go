package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SaveResult is the API's acknowledgement of a profile save.
type SaveResult struct {
	Message string `json:"message"`
}

// SelectionEvent is one recorded feedback decision in the profile history.
type SelectionEvent struct {
	Iteration int    `json:"iteration,omitempty"`
	Feedback  string `json:"feedback,omitempty"`
	Style     string `json:"style,omitempty"`
	ImageKey  string `json:"image_key,omitempty"`
}

// Profile is a read-only snapshot of the learned preferences. Fetched is
// false when the profile is the synthesized empty default, which covers both
// "not ready yet" and any fetch failure.
type Profile struct {
	TopStyles        map[string]float64 `json:"top_styles"`
	SelectionHistory []SelectionEvent   `json:"selection_history"`
	Fetched          bool               `json:"-"`
}

func emptyProfile() *Profile {
	return &Profile{
		TopStyles:        map[string]float64{},
		SelectionHistory: []SelectionEvent{},
	}
}

// SaveProfile asks the API to derive and store the preference profile for
// the current session.
func (c *Client) SaveProfile(ctx context.Context) (*SaveResult, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	url := fmt.Sprintf("%s/preference/%s/profile", c.baseURL, c.preferenceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set(authHeader, c.aiID)

	c.logRequest(http.MethodPost, url, httpReq.Header, nil)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logResponse(resp.StatusCode, body)

	if !isSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("%w: status %d: %s", ErrProfileSave, resp.StatusCode, serverErrorText(body))
	}

	var result SaveResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// GetProfile fetches the profile snapshot. It waits a short settling delay
// first so the server can finish processing recently submitted feedback.
// Apart from the authentication precondition it never fails: a 400 means
// the profile is not ready yet, and any other failure is also mapped to the
// empty default profile with Fetched unset.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	select {
	case <-time.After(c.settleDelay):
	case <-ctx.Done():
		return emptyProfile(), nil
	}

	url := fmt.Sprintf("%s/preference/%s/profile", c.baseURL, c.preferenceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return emptyProfile(), nil
	}
	httpReq.Header.Set(authHeader, c.aiID)

	c.logRequest(http.MethodGet, url, httpReq.Header, nil)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return emptyProfile(), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return emptyProfile(), nil
	}

	c.logResponse(resp.StatusCode, body)

	if !isSuccess(resp.StatusCode) {
		return emptyProfile(), nil
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return emptyProfile(), nil
	}
	if profile.TopStyles == nil {
		profile.TopStyles = map[string]float64{}
	}
	if profile.SelectionHistory == nil {
		profile.SelectionHistory = []SelectionEvent{}
	}
	profile.Fetched = true
	return &profile, nil
}
