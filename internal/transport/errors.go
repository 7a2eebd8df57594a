package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NetworkError means the request never produced a response: the endpoint was
// unreachable, the context ended, or the response body could not be read.
type NetworkError struct {
	Op     string
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TransportError is a non-2xx response from the remote service. Body is the
// raw response payload, uninterpreted.
type TransportError struct {
	StatusCode int
	Body       []byte
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message())
}

// Message extracts a human-readable message from the body. The facility API
// reports {"detail": ...}; other services use {"error": ...}.
func (e *TransportError) Message() string {
	var apiErr struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if json.Unmarshal(e.Body, &apiErr) == nil {
		if len(apiErr.Detail) > 0 && string(apiErr.Detail) != "null" {
			var detail string
			if json.Unmarshal(apiErr.Detail, &detail) == nil {
				return detail
			}
			// validation errors arrive as a list of objects
			return string(apiErr.Detail)
		}
		if apiErr.Error != "" {
			return apiErr.Error
		}
	}
	return string(e.Body)
}

// IsStatus returns true if err (or any wrapped error) is a TransportError with the given status code.
func IsStatus(err error, code int) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode == code
	}
	return false
}

// IsNetwork returns true if err (or any wrapped error) is a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
