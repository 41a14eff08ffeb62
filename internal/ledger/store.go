// Package ledger persists which module each completed analysis chose, so
// later prompts can discourage repeating the same module.
//
// Rows are append-only. The only mutations are setting chosen_module once
// and rating the model's output. Channel ratings live in their own table.
// The schema is versioned and migrations only ever add nullable columns.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/alnah/go-somas/internal/analysis"
)

// timeLayout is fixed-width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Input modes of a recorded analysis.
const (
	InputFetched = "fetched"
	InputManual  = "manual"
)

// Record is one analysis row. ChosenModule is empty until set and
// ModelRating is only meaningful when Rated.
type Record struct {
	ID           string
	Timestamp    time.Time
	PresetID     string
	Perspective  string
	ChosenModule analysis.Module
	ProviderID   string
	ModelID      string
	TokensUsed   int

	Title         string
	Channel       string
	URL           string
	InputMode     string
	HadTranscript bool
	HadTimeRange  bool
	HadQuestions  bool

	// MaxChars is the preset's output budget, 0 when unlimited.
	MaxChars     int
	ResultChars  int
	ResponseTime time.Duration

	ModelRating int
	Rated       bool
}

// LimitRatio returns ResultChars/MaxChars. ok is false without a budget.
func (r Record) LimitRatio() (ratio float64, ok bool) {
	if r.MaxChars <= 0 {
		return 0, false
	}
	return float64(r.ResultChars) / float64(r.MaxChars), true
}

// OverLimit reports whether the result exceeded the preset budget.
func (r Record) OverLimit() bool {
	return r.MaxChars > 0 && r.ResultChars > r.MaxChars
}

// ShortID is the suffix of id shown in listings and accepted by ResolveID.
func ShortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[len(id)-shortIDLen:]
}

const shortIDLen = 8

// Store is a SQLite-backed ledger. Methods are safe for concurrent use.
type Store struct {
	db         *sql.DB
	vocabulary analysis.Vocabulary
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithVocabulary sets the modules SetChosenModule accepts.
func WithVocabulary(v analysis.Vocabulary) Option {
	return func(s *Store) {
		s.vocabulary = v
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now for records without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens or creates the ledger at path and applies pending migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and serializes writes.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:         db,
		vocabulary: analysis.DefaultVocabulary(),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a row with no chosen module. An empty ID gets a UUIDv7,
// a zero timestamp the current time. It returns the stored ID.
func (s *Store) Record(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generate analysis ID: %w", err)
		}
		rec.ID = id.String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}

	var ratio sql.NullFloat64
	if r, ok := rec.LimitRatio(); ok {
		ratio = sql.NullFloat64{Float64: r, Valid: true}
	}
	var rating sql.NullInt64
	if rec.Rated {
		if err := ValidateRating(rec.ModelRating); err != nil {
			return "", err
		}
		rating = sql.NullInt64{Int64: int64(rec.ModelRating), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (
			id, timestamp, preset_id, perspective, provider_id, model_id, tokens_used,
			title, channel, url, input_mode, had_transcript, had_time_range, had_questions,
			preset_max_chars, result_chars, response_ms, limit_ratio, is_over_limit, model_rating)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Timestamp.UTC().Format(timeLayout),
		rec.PresetID,
		rec.Perspective,
		nullString(rec.ProviderID),
		nullString(rec.ModelID),
		nullInt(rec.TokensUsed),
		nullString(rec.Title),
		nullString(rec.Channel),
		nullString(rec.URL),
		nullString(rec.InputMode),
		boolInt(rec.HadTranscript),
		boolInt(rec.HadTimeRange),
		boolInt(rec.HadQuestions),
		nullInt(rec.MaxChars),
		nullInt(rec.ResultChars),
		nullInt(int(rec.ResponseTime.Milliseconds())),
		ratio,
		boolInt(rec.OverLimit()),
		rating,
	)
	if err != nil {
		return "", fmt.Errorf("insert analysis: %w", err)
	}
	s.logger.Debug("analysis recorded", zap.String("id", rec.ID), zap.String("preset", rec.PresetID))
	return rec.ID, nil
}

// SetChosenModule sets the module of analysis id exactly once.
// A second call, or a module outside the vocabulary, returns ErrIntegrity
// and leaves the stored value unchanged.
func (s *Store) SetChosenModule(ctx context.Context, id string, m analysis.Module) error {
	if !s.vocabulary.Contains(m) {
		return fmt.Errorf("module %q not in vocabulary: %w", m, ErrIntegrity)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET chosen_module = ? WHERE id = ? AND chosen_module IS NULL`,
		string(m), id)
	if err != nil {
		return fmt.Errorf("update chosen module: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update chosen module: %w", err)
	}
	if n == 1 {
		s.logger.Debug("chosen module set", zap.String("id", id), zap.String("module", string(m)))
		return nil
	}

	var existing sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT chosen_module FROM analyses WHERE id = ?`, id).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read chosen module: %w", err)
	}
	return fmt.Errorf("analysis %s already chose %s: %w", id, existing.String, ErrIntegrity)
}

// RecentModules returns the chosen modules of the last n analyses, most
// recent first. Analyses without a detected module yield "".
func (s *Store) RecentModules(ctx context.Context, n int) ([]analysis.Module, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT chosen_module FROM analyses ORDER BY timestamp DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent modules: %w", err)
	}
	defer rows.Close()

	modules := make([]analysis.Module, 0, n)
	for rows.Next() {
		var m sql.NullString
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan recent module: %w", err)
		}
		modules = append(modules, analysis.Module(m.String))
	}
	return modules, rows.Err()
}

// Recent returns the last n records, most recent first.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM analyses ORDER BY timestamp DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent analyses: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns the analysis with the given full ID.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM analyses WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	return rec, err
}

const recordColumns = `id, timestamp, preset_id, perspective, chosen_module, provider_id, model_id, tokens_used,
	title, channel, url, input_mode, had_transcript, had_time_range, had_questions,
	preset_max_chars, result_chars, response_ms, model_rating`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec                                   Record
		ts                                    string
		module, provider, model               sql.NullString
		title, channel, url, mode             sql.NullString
		tokens, maxChars, resultChars, respMS sql.NullInt64
		transcript, timeRange, questions      sql.NullInt64
		rating                                sql.NullInt64
	)
	err := row.Scan(&rec.ID, &ts, &rec.PresetID, &rec.Perspective, &module, &provider, &model, &tokens,
		&title, &channel, &url, &mode, &transcript, &timeRange, &questions,
		&maxChars, &resultChars, &respMS, &rating)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, err
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan analysis: %w", err)
	}
	rec.Timestamp, err = time.Parse(timeLayout, ts)
	if err != nil {
		return Record{}, fmt.Errorf("parse timestamp of %s: %w", rec.ID, err)
	}
	rec.ChosenModule = analysis.Module(module.String)
	rec.ProviderID = provider.String
	rec.ModelID = model.String
	rec.TokensUsed = int(tokens.Int64)
	rec.Title = title.String
	rec.Channel = channel.String
	rec.URL = url.String
	rec.InputMode = mode.String
	rec.HadTranscript = transcript.Int64 != 0
	rec.HadTimeRange = timeRange.Int64 != 0
	rec.HadQuestions = questions.Int64 != 0
	rec.MaxChars = int(maxChars.Int64)
	rec.ResultChars = int(resultChars.Int64)
	rec.ResponseTime = time.Duration(respMS.Int64) * time.Millisecond
	rec.ModelRating = int(rating.Int64)
	rec.Rated = rating.Valid
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n > 0}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
