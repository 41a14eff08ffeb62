package ledger

import "errors"

// Sentinel errors for ledger operations.
var (
	// ErrIntegrity indicates a logic fault: setting the chosen module twice or
	// recording a module outside the vocabulary. Committed rows are unaffected.
	ErrIntegrity = errors.New("ledger integrity violation")

	// ErrNotFound indicates an unknown analysis ID.
	ErrNotFound = errors.New("analysis not found")

	// ErrAmbiguousID indicates a short ID matching more than one analysis.
	ErrAmbiguousID = errors.New("ambiguous analysis ID")

	// ErrInvalidRating indicates a score outside its scale or a rating
	// without a channel name.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrUnrated indicates a channel without a stored rating.
	ErrUnrated = errors.New("channel not rated")
)
