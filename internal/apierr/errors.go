// Package apierr holds the error sentinels shared by every provider
// adapter and the small retry helper used for model discovery.
//
// Adapters never return these to the dispatch caller as Go errors. They are
// attached to provider.Response.Err so the CLI can pick an exit code and a
// one-line message with errors.Is.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for remote completion services.
var (
	// ErrRateLimit indicates the service throttled the request (HTTP 429).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the account ran out of credit (HTTP 402).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates no answer arrived within the configured timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates the API key was rejected (HTTP 401/403).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates any other 4xx answer.
	ErrBadRequest = errors.New("bad request")

	// ErrServer indicates a 5xx answer.
	ErrServer = errors.New("server error")

	// ErrTransport indicates the request never reached the service.
	ErrTransport = errors.New("connection failed")

	// ErrMalformedResponse indicates a 2xx answer that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// ClassifyStatus maps a non-2xx HTTP status code to its sentinel.
// It returns nil for 2xx codes.
func ClassifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return ErrRateLimit
	case code == http.StatusPaymentRequired:
		return ErrQuotaExceeded
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrAuthFailed
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return ErrTimeout
	case code >= 500:
		return ErrServer
	default:
		return ErrBadRequest
	}
}

// StatusError records a non-2xx answer with its body preserved verbatim.
type StatusError struct {
	Code int
	Body string
}

// Error formats the answer as "HTTP <code>: <body>".
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// Unwrap exposes the classified sentinel so errors.Is works on StatusError.
func (e *StatusError) Unwrap() error {
	return ClassifyStatus(e.Code)
}
