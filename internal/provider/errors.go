package provider

import "errors"

// Sentinel errors for client construction and definition loading.
var (
	// ErrUnknown indicates a provider ID with no definition.
	ErrUnknown = errors.New("unknown provider")

	// ErrEmptyAPIKey indicates that the API key was not provided.
	ErrEmptyAPIKey = errors.New("API key is required")

	// ErrInvalidDefinition indicates a malformed provider definition.
	ErrInvalidDefinition = errors.New("invalid provider definition")
)
