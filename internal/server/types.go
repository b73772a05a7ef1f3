// Package server defines the JSON payload types and small helpers shared
// across the HTTP handlers.
package server

import "strings"

// contributeRequest is the POST /contribute body.
type contributeRequest struct {
	Word string `json:"word"`
}

// contributeResponse is the structured result of a contribute attempt.
// Refusals are normal control responses, not protocol errors.
type contributeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
