package prompt

import "errors"

// Sentinel errors for request validation.
var (
	// ErrNoSource indicates a request without source content.
	ErrNoSource = errors.New("no source content")

	// ErrTimeRangeOnManual indicates a time range attached to a manual transcript.
	ErrTimeRangeOnManual = errors.New("time range requires fetched content")
)
