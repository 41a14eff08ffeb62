package lang

import "errors"

// ErrInvalid indicates an output language the prompt cannot name.
var ErrInvalid = errors.New("invalid language code")
