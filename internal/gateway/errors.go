package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies where a request failed.
type Kind int

const (
	// KindTransport means no response was received.
	KindTransport Kind = iota + 1
	// KindHTTP means the server answered with a non-success status.
	KindHTTP
	// KindApplication means a success status carried "success": false.
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTP:
		return "http"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Error is the single error shape returned by the gateway. Its Error method
// yields a message suitable for showing to the employee.
//
//	var apiErr *gateway.Error
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized { ... }
type Error struct {
	Kind       Kind
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message extracts a human-readable message from any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// IsStatus reports whether err is an HTTP error with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindHTTP && apiErr.StatusCode == status
	}
	return false
}

// errorMessage picks the body's "error", then "message", then a generic text.
func errorMessage(body []byte, isJSON bool, status int) string {
	if isJSON {
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err == nil {
			if msg, ok := fields["error"].(string); ok && msg != "" {
				return msg
			}
			if msg, ok := fields["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}
