package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type authRequest struct {
	AccessID string `json:"access_id"`
	Gender   string `json:"gender"`
}

type authResponse struct {
	PreferenceID string `json:"preference_id"`
	AIID         string `json:"ai_id"`
}

// Authenticate creates a new session on the API and stores the returned
// tokens, overwriting any prior session. The iteration counter restarts at 0.
func (c *Client) Authenticate(ctx context.Context, accessID, gender string) (*Session, error) {
	jsonData, err := json.Marshal(&authRequest{AccessID: accessID, Gender: gender})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/preference"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logRequest(http.MethodPost, url, httpReq.Header, jsonData)

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
		return nil, fmt.Errorf("%w: status %d: %s", ErrAuthentication, resp.StatusCode, serverErrorText(body))
	}

	var apiResp authResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if err := c.SetSessionData(apiResp.AIID, apiResp.PreferenceID); err != nil {
		return nil, err
	}
	if err := c.SetCurrentIteration(0); err != nil {
		return nil, err
	}

	return &Session{AIID: apiResp.AIID, PreferenceID: apiResp.PreferenceID}, nil
}
