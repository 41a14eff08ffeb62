package preset

import "errors"

// Sentinel errors for preset lookup and catalog loading.
var (
	// ErrUnknown indicates a preset ID not present in the catalog.
	ErrUnknown = errors.New("unknown preset")

	// ErrInvalid indicates a catalog entry that violates a constraint.
	ErrInvalid = errors.New("invalid preset catalog")
)
