// Package source fetches video metadata and captions with yt-dlp.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-somas/internal/analysis"
)

const (
	// binaryName is the base name of the yt-dlp executable.
	binaryName = "yt-dlp"

	// envYtDlpPath overrides the yt-dlp lookup.
	envYtDlpPath = "YTDLP_PATH"

	// fallbackLanguage is tried after the preferred language.
	fallbackLanguage = "en"

	unknownTitle   = "Unbekannter Titel"
	unknownChannel = "Unbekannter Kanal"
)

// notFoundMarkers are yt-dlp stderr fragments that mean the video is gone.
var notFoundMarkers = []string{
	"Video unavailable",
	"Private video",
	"This video has been removed",
	"This video is not available",
	"HTTP Error 404",
	"Incomplete YouTube ID",
}

// Fetcher retrieves metadata and, when available, the transcript of a video.
type Fetcher interface {
	// Fetch returns ErrNoTranscript together with usable metadata when the
	// video has no captions.
	Fetch(ctx context.Context, url string) (analysis.Fetched, error)
}

// runFn runs a command and returns stdout and stderr.
type runFn func(ctx context.Context, path string, args []string) (stdout, stderr []byte, err error)

// Compile-time interface compliance check.
var _ Fetcher = (*YtDlp)(nil)

// YtDlp fetches through the yt-dlp command line tool.
type YtDlp struct {
	binary   string
	language string
	run      runFn
	lookPath func(string) (string, error)
	getenv   func(string) string
	logger   *zap.Logger
}

// Option configures a YtDlp fetcher.
type Option func(*YtDlp)

// WithBinary sets the yt-dlp path, skipping lookup.
func WithBinary(path string) Option {
	return func(y *YtDlp) { y.binary = path }
}

// WithLanguage sets the preferred caption language. Default is "de".
func WithLanguage(code string) Option {
	return func(y *YtDlp) {
		if code != "" {
			y.language = code
		}
	}
}

// WithRunner sets a custom command runner (for testing).
func WithRunner(fn runFn) Option {
	return func(y *YtDlp) { y.run = fn }
}

// WithLookPath sets a custom executable lookup (for testing).
func WithLookPath(fn func(string) (string, error)) Option {
	return func(y *YtDlp) { y.lookPath = fn }
}

// WithGetenv sets a custom environment lookup (for testing).
func WithGetenv(fn func(string) string) Option {
	return func(y *YtDlp) { y.getenv = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(y *YtDlp) {
		if l != nil {
			y.logger = l
		}
	}
}

// NewYtDlp returns a fetcher with the given options.
func NewYtDlp(opts ...Option) *YtDlp {
	y := &YtDlp{
		language: "de",
		run:      defaultRun,
		lookPath: exec.LookPath,
		getenv:   os.Getenv,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// videoInfo is the subset of yt-dlp's -J output in use.
type videoInfo struct {
	ID                string                     `json:"id"`
	Title             string                     `json:"title"`
	Uploader          string                     `json:"uploader"`
	Channel           string                     `json:"channel"`
	Duration          float64                    `json:"duration"`
	WebpageURL        string                     `json:"webpage_url"`
	Subtitles         map[string]json.RawMessage `json:"subtitles"`
	AutomaticCaptions map[string]json.RawMessage `json:"automatic_captions"`
}

// Fetch implements Fetcher.
func (y *YtDlp) Fetch(ctx context.Context, url string) (analysis.Fetched, error) {
	if _, ok := ExtractVideoID(url); !ok {
		return analysis.Fetched{}, fmt.Errorf("%q: %w", url, ErrInvalidURL)
	}
	bin, err := y.resolve()
	if err != nil {
		return analysis.Fetched{}, err
	}

	info, err := y.metadata(ctx, bin, url)
	if err != nil {
		return analysis.Fetched{}, err
	}

	fetched := analysis.Fetched{
		Title:    firstNonEmpty(info.Title, unknownTitle),
		Channel:  firstNonEmpty(info.Channel, info.Uploader, unknownChannel),
		URL:      url,
		Duration: time.Duration(info.Duration * float64(time.Second)),
	}

	lang, auto, ok := pickCaptions(info, y.language)
	if !ok {
		return fetched, ErrNoTranscript
	}

	transcript, err := y.captions(ctx, bin, url, lang, auto)
	if err != nil {
		y.logger.Warn("caption download failed", zap.String("lang", lang), zap.Error(err))
		return fetched, fmt.Errorf("%w: %v", ErrNoTranscript, err)
	}
	if strings.TrimSpace(transcript) == "" {
		return fetched, ErrNoTranscript
	}

	fetched.Transcript = transcript
	fetched.AutoCaptions = auto
	y.logger.Debug("transcript fetched",
		zap.String("lang", lang), zap.Bool("auto", auto), zap.Int("chars", len(transcript)))
	return fetched, nil
}

func (y *YtDlp) resolve() (string, error) {
	if y.binary != "" {
		return y.binary, nil
	}
	if p := y.getenv(envYtDlpPath); p != "" {
		return p, nil
	}
	p, err := y.lookPath(binaryName)
	if err != nil {
		return "", fmt.Errorf("%w: install it or set %s", ErrToolMissing, envYtDlpPath)
	}
	return p, nil
}

func (y *YtDlp) metadata(ctx context.Context, bin, url string) (videoInfo, error) {
	stdout, stderr, err := y.run(ctx, bin, []string{"-J", "--skip-download", "--no-warnings", "--no-playlist", url})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return videoInfo{}, ctxErr
		}
		msg := strings.TrimSpace(string(stderr))
		for _, marker := range notFoundMarkers {
			if strings.Contains(msg, marker) {
				return videoInfo{}, fmt.Errorf("%w: %s", ErrNotFound, msg)
			}
		}
		return videoInfo{}, fmt.Errorf("yt-dlp: %w: %v: %s", ErrUnavailable, err, msg)
	}

	var info videoInfo
	if err := json.Unmarshal(stdout, &info); err != nil {
		return videoInfo{}, fmt.Errorf("decode yt-dlp metadata: %w: %v", ErrUnavailable, err)
	}
	return info, nil
}

// captions downloads one caption track as VTT into a temp dir.
func (y *YtDlp) captions(ctx context.Context, bin, url, lang string, auto bool) (string, error) {
	dir, err := os.MkdirTemp("", "somas-subs-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	subFlag := "--write-subs"
	if auto {
		subFlag = "--write-auto-subs"
	}
	args := []string{
		"--skip-download", "--no-warnings", "--no-playlist",
		subFlag, "--sub-langs", lang, "--sub-format", "vtt",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		url,
	}
	if _, stderr, err := y.run(ctx, bin, args); err != nil {
		return "", fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(string(stderr)))
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.vtt"))
	if err != nil || len(files) == 0 {
		return "", errors.New("no caption file written")
	}
	// #nosec G304 -- path is inside our own temp dir
	data, err := os.ReadFile(files[0])
	if err != nil {
		return "", fmt.Errorf("read captions: %w", err)
	}
	return parseVTT(string(data)), nil
}

// pickCaptions chooses the caption track: preferred language, then English,
// then the first available. Manual subtitles win over automatic captions in
// each step.
func pickCaptions(info videoInfo, preferred string) (lang string, auto bool, ok bool) {
	for _, want := range []string{preferred, fallbackLanguage} {
		if l, found := matchLanguage(info.Subtitles, want); found {
			return l, false, true
		}
		if l, found := matchLanguage(info.AutomaticCaptions, want); found {
			return l, true, true
		}
	}
	if l, found := firstKey(info.Subtitles); found {
		return l, false, true
	}
	if l, found := firstKey(info.AutomaticCaptions); found {
		return l, true, true
	}
	return "", false, false
}

// matchLanguage accepts exact matches and regional variants ("de-DE").
func matchLanguage(tracks map[string]json.RawMessage, want string) (string, bool) {
	if want == "" {
		return "", false
	}
	if _, ok := tracks[want]; ok {
		return want, true
	}
	keys := sortedKeys(tracks)
	for _, k := range keys {
		if strings.HasPrefix(strings.ToLower(k), strings.ToLower(want)+"-") {
			return k, true
		}
	}
	return "", false
}

func firstKey(tracks map[string]json.RawMessage) (string, bool) {
	for _, k := range sortedKeys(tracks) {
		// yt-dlp lists "live_chat" among subtitles.
		if k != "live_chat" {
			return k, true
		}
	}
	return "", false
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// defaultRun is the production runner.
func defaultRun(ctx context.Context, path string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
