package template

import "errors"

// Sentinel errors for template lookup and rendering.
var (
	// ErrUnknown indicates an invalid template name was specified.
	ErrUnknown = errors.New("unknown template")

	// ErrMissingVariable indicates the template referenced a variable absent
	// from the input mapping. Rendering never falls back to blank text.
	ErrMissingVariable = errors.New("missing template variable")

	// ErrRender indicates any other execution failure.
	ErrRender = errors.New("template rendering failed")
)
