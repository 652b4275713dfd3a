package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrMissingCredential = errors.New("missing_credential")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("rate_limited")
	ErrEmptyResponse     = errors.New("empty_response")
	ErrContentRefused    = errors.New("content_refused")
)

// HTTPError represents a non-2xx status from a provider.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300]
	}
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.Provider, body)
}

// Is maps auth and rate-limit statuses onto the sentinels.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == 401 || e.StatusCode == 403
	case ErrRateLimited:
		return e.StatusCode == 429
	}
	return false
}

func IsRateLimited(err error) bool    { return errors.Is(err, ErrRateLimited) }
func IsContentRefused(err error) bool { return errors.Is(err, ErrContentRefused) }

// IsAuthError reports a missing or rejected credential.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingCredential) || errors.Is(err, ErrUnauthorized)
}

// IsTimeout checks if error is specifically a timeout
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// IsTransient checks if error is a network or server-side failure worth retrying by the user.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsTimeout(err) || IsRateLimited(err) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 && httpErr.StatusCode < 600
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "eof")
}

// Classify labels an error for metrics and logs.
func Classify(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsAuthError(err):
		return "auth"
	case IsTimeout(err):
		return "timeout"
	case IsRateLimited(err):
		return "rate_limited"
	case IsContentRefused(err):
		return "content_refused"
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	case IsTransient(err):
		return "transient"
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
		return "fatal"
	}
	return "unknown"
}
