// Package analysis defines the domain values shared by prompt generation,
// dispatch and the module ledger: perspectives, modules, source content and
// time ranges.
package analysis

import (
	"strings"
	"time"
)

// Source is the content an analysis is about. It is sealed: the only
// implementations are Fetched and Manual.
type Source interface {
	// Headline returns the title shown in the prompt.
	Headline() string
	// Creator returns the channel or author.
	Creator() string
	// Link returns the source URL, or "" when none is known.
	Link() string
	// Text returns the transcript, or "" when none is available.
	Text() string

	sealed()
}

// Fetched is content retrieved from a video platform. The transcript is
// optional because platforms withhold it for short or very recent videos.
type Fetched struct {
	Title      string
	Channel    string
	URL        string
	Transcript string
	Duration   time.Duration
	// AutoCaptions marks a transcript taken from machine-generated captions.
	AutoCaptions bool
}

func (f Fetched) Headline() string { return f.Title }
func (f Fetched) Creator() string  { return f.Channel }
func (f Fetched) Link() string     { return f.URL }
func (f Fetched) Text() string     { return f.Transcript }
func (Fetched) sealed()            {}

// HasTranscript reports whether a transcript was retrieved.
func (f Fetched) HasTranscript() bool {
	return strings.TrimSpace(f.Transcript) != ""
}

// Manual is a transcript supplied by the user. Construct it with NewManual
// so the transcript is guaranteed to be present.
type Manual struct {
	title      string
	author     string
	url        string
	transcript string
}

// NewManual returns manual content. url may be empty.
func NewManual(title, author, url, transcript string) (Manual, error) {
	if strings.TrimSpace(transcript) == "" {
		return Manual{}, ErrEmptyTranscript
	}
	return Manual{title: title, author: author, url: url, transcript: transcript}, nil
}

func (m Manual) Headline() string { return m.title }
func (m Manual) Creator() string  { return m.author }
func (m Manual) Link() string     { return m.url }
func (m Manual) Text() string     { return m.transcript }
func (Manual) sealed()            {}

var (
	_ Source = Fetched{}
	_ Source = Manual{}
)
