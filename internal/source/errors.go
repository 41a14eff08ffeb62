package source

import (
	"errors"
	"fmt"
)

// ErrUnavailable is the umbrella for every recoverable fetch failure. The
// caller may continue with metadata only or a manual transcript.
var ErrUnavailable = errors.New("source unavailable")

// ErrNotFound indicates the platform has no such video, or hides it.
var ErrNotFound = fmt.Errorf("video not found: %w", ErrUnavailable)

// ErrNoTranscript indicates metadata was fetched but no captions exist.
var ErrNoTranscript = fmt.Errorf("no transcript available: %w", ErrUnavailable)

// ErrInvalidURL indicates the URL is not a recognized video URL.
var ErrInvalidURL = errors.New("invalid video URL")

// ErrToolMissing indicates yt-dlp is not installed.
var ErrToolMissing = errors.New("yt-dlp not found")
