package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HealthStatus is the API root's liveness response.
type HealthStatus struct {
	Status string `json:"status"`
}

// CheckHealth probes the service root. Unlike GetProfile, failures here
// surface to the caller.
func (c *Client) CheckHealth(ctx context.Context) (*HealthStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logRequest(http.MethodGet, c.baseURL, httpReq.Header, nil)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHealthCheck, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHealthCheck, err)
	}

	c.logResponse(resp.StatusCode, body)

	if !isSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("%w: status %d: %s", ErrHealthCheck, resp.StatusCode, serverErrorText(body))
	}

	var status HealthStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHealthCheck, err)
	}
	return &status, nil
}
