package stream

import (
	"fmt"
	"net/http"
	"strings"
)

// Error categories used for logging and the user visible message
const (
	CategoryAuth          = "auth_failure"
	CategoryModelNotFound = "model_not_found"
	CategoryNotFound      = "endpoint_not_found"
	CategoryRateLimit     = "rate_limit"
	CategoryServer        = "server_error"
	CategoryNetwork       = "network_error"
	CategoryStream        = "stream_error"
	CategoryUnknown       = "unknown_error"
)

var userMessages = map[string]string{
	CategoryAuth:          "Authentication failed. Check the connection's API key.",
	CategoryModelNotFound: "Model not found. Check the selected model.",
	CategoryNotFound:      "Endpoint not found. Check the connection's endpoint.",
	CategoryRateLimit:     "Rate limit exceeded. Try again later.",
	CategoryServer:        "The provider returned a server error.",
	CategoryNetwork:       "Could not reach the provider.",
	CategoryStream:        "The provider reported an error mid-stream.",
	CategoryUnknown:       "The request failed.",
}

// TransportError is a failed connection, a non-200 response or an error
// event received mid-stream
type TransportError struct {
	Category   string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Category, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage is the toast text for e
func (e *TransportError) UserMessage() string {
	msg, ok := userMessages[e.Category]
	if !ok {
		msg = userMessages[CategoryUnknown]
	}
	if e.Message != "" {
		return msg + " " + e.Message
	}
	return msg
}

// Categorize maps a failed HTTP status to a category. A 404 whose body
// mentions a model is reported as a missing model.
func Categorize(statusCode int, body []byte) string {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return CategoryAuth
	case http.StatusNotFound:
		if strings.Contains(strings.ToLower(string(body)), "model") {
			return CategoryModelNotFound
		}
		return CategoryNotFound
	case http.StatusTooManyRequests:
		return CategoryRateLimit
	default:
		if statusCode >= http.StatusInternalServerError {
			return CategoryServer
		}
		return CategoryUnknown
	}
}

// statusError builds the error for a non-200 response
func statusError(statusCode int, body []byte) *TransportError {
	return &TransportError{
		Category:   Categorize(statusCode, body),
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

// networkError wraps a connect or read failure
func networkError(err error) *TransportError {
	return &TransportError{Category: CategoryNetwork, Message: err.Error(), Err: err}
}
