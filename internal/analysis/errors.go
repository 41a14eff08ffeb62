package analysis

import "errors"

// Sentinel errors for domain validation.
var (
	// ErrInvalidPerspective indicates a perspective outside the closed set.
	ErrInvalidPerspective = errors.New("invalid perspective")

	// ErrInvalidModule indicates a module name that is not UPPER_SNAKE or is
	// already part of the vocabulary.
	ErrInvalidModule = errors.New("invalid module")

	// ErrInvalidTimeRange indicates a time range violating start < end or
	// falling outside the known duration.
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrEmptyTranscript indicates manual content without transcript text.
	ErrEmptyTranscript = errors.New("manual content requires a transcript")
)
