package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Completion and recovery signals the API reports as plain 400 errors.
const (
	msgNoMoreImages     = "No more images available"
	msgInvalidIteration = "Invalid iteration ID"
)

// FeedbackOptions shape one feedback submission. Feedback defaults to
// FeedbackDislike when empty (only relevant on the very first call, where no
// prior image exists to react to). Style and ImageKey record the final
// choice and are sent only when the submission targets the last iteration
// and both are supplied.
type FeedbackOptions struct {
	Feedback string
	Style    string
	ImageKey string
}

type iterationRequest struct {
	Feedback string `json:"feedback"`
	Style    string `json:"style,omitempty"`
	ImageKey string `json:"image_key,omitempty"`
}

type iterationResponse struct {
	ImageURL  string `json:"image_url"`
	Iteration int    `json:"iteration"`
	Style     string `json:"style,omitempty"`
	ImageKey  string `json:"image_key,omitempty"`
}

// SubmitFeedback submits like/dislike feedback for the current image and
// returns the next candidate. Once the counter reaches MaxIterations the
// loop is exhausted and a terminal result is returned without any network
// call. The API's "No more images available" response is treated as graceful
// completion, and "Invalid iteration ID" triggers a single counter-reset
// retry before failing hard.
func (c *Client) SubmitFeedback(ctx context.Context, opts FeedbackOptions) (*IterationResult, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	return c.submitFeedback(ctx, opts, false)
}

func (c *Client) submitFeedback(ctx context.Context, opts FeedbackOptions, retried bool) (*IterationResult, error) {
	if c.currentIteration >= MaxIterations {
		return &IterationResult{Iteration: c.currentIteration, Completed: true}, nil
	}

	next := c.currentIteration + 1
	if c.currentIteration == 0 {
		next = 1
	}
	if next > MaxIterations {
		// Unreachable given the terminal check above
		return &IterationResult{Iteration: MaxIterations, Completed: true}, nil
	}

	feedback := opts.Feedback
	if feedback == "" {
		feedback = FeedbackDislike
	}

	apiReq := iterationRequest{Feedback: feedback}
	if next == MaxIterations && opts.Style != "" && opts.ImageKey != "" {
		apiReq.Style = opts.Style
		apiReq.ImageKey = opts.ImageKey
	}

	jsonData, err := json.Marshal(&apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/preference/%s/iteration/%d", c.baseURL, c.preferenceID, next)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(authHeader, c.aiID)

	c.logRequest(http.MethodPost, url, httpReq.Header, jsonData)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Some transports surface the exhaustion signal as a plain error
		// instead of a structured 400
		if strings.Contains(err.Error(), msgNoMoreImages) {
			return c.completeExhausted()
		}
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logResponse(resp.StatusCode, body)

	if resp.StatusCode == http.StatusBadRequest {
		switch serverErrorText(body) {
		case msgNoMoreImages:
			return c.completeExhausted()
		case msgInvalidIteration:
			if retried {
				return nil, fmt.Errorf("%w: status %d: %s (retry after counter reset also rejected)",
					ErrFeedbackSubmission, resp.StatusCode, msgInvalidIteration)
			}
			// The server no longer recognizes our counter. Reset and walk
			// again from iteration 1, at most once.
			if err := c.SetCurrentIteration(0); err != nil {
				return nil, err
			}
			return c.submitFeedback(ctx, opts, true)
		}
	}

	if !isSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("%w: status %d: %s", ErrFeedbackSubmission, resp.StatusCode, serverErrorText(body))
	}

	var apiResp iterationResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if err := c.SetCurrentIteration(apiResp.Iteration); err != nil {
		return nil, err
	}

	return &IterationResult{
		ImageURL:  apiResp.ImageURL,
		Iteration: apiResp.Iteration,
		Completed: apiResp.Iteration >= MaxIterations,
		Style:     apiResp.Style,
		ImageKey:  apiResp.ImageKey,
	}, nil
}

func (c *Client) completeExhausted() (*IterationResult, error) {
	if err := c.SetCurrentIteration(MaxIterations); err != nil {
		return nil, err
	}
	return &IterationResult{Iteration: MaxIterations, Completed: true}, nil
}
