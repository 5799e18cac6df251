package osrm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResult is returned when the service answered "Ok" but the result
// array the operation reads from was empty.
var ErrEmptyResult = errors.New("response contained no results")

// TransportError reports a failure before a service envelope could be read:
// network errors, non-2xx HTTP statuses and malformed JSON bodies.
type TransportError struct {
	Service    string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("osrm %s: request failed: %v", e.Service, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("osrm %s: status %d: %v", e.Service, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("osrm %s: http status %d body: %s", e.Service, e.StatusCode, e.Body)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError reports a parsed response whose code is not "Ok".
type ServiceError struct {
	Service string
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("osrm %s: service returned code %q", e.Service, e.Code)
	}
	return fmt.Sprintf("osrm %s: service returned code %q: %s", e.Service, e.Code, e.Message)
}

func emptyResult(service, field string) error {
	return fmt.Errorf("osrm %s: %w (%s)", service, ErrEmptyResult, field)
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
