package client

import (
	"encoding/json"
	"errors"
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrAuthentication     = errors.New("authentication failed")
	ErrFeedbackSubmission = errors.New("feedback submission failed")
	ErrProfileSave        = errors.New("profile save failed")
	ErrHealthCheck        = errors.New("health check failed")
	ErrBaseURLRequired    = errors.New("base URL is required")
)

type serverError struct {
	Error string `json:"error"`
}

// serverErrorText extracts the {"error": ...} message from a response body,
// falling back to "Unknown error" when the body carries none.
func serverErrorText(body []byte) string {
	var se serverError
	if err := json.Unmarshal(body, &se); err == nil && se.Error != "" {
		return se.Error
	}
	return "Unknown error"
}
