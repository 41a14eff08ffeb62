package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrAPIKeyMissing indicates no API key is configured for the provider.
	ErrAPIKeyMissing = errors.New("API key not configured")

	// ErrNoProvider indicates no provider was selected.
	ErrNoProvider = errors.New("no provider selected")

	// ErrDispatchFailed indicates the provider call ended in the error state.
	ErrDispatchFailed = errors.New("provider request failed")

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrOutputExists indicates the output file already exists.
	ErrOutputExists = errors.New("output file already exists")

	// ErrIncompleteTimeRange indicates only one of --start and --end was given.
	ErrIncompleteTimeRange = errors.New("--start and --end must be given together")

	// ErrInvalidLimit indicates a non-positive --limit.
	ErrInvalidLimit = errors.New("--limit must be positive")
)
