package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Rating scales. Model and channel quality scores share the z-scale.
const (
	MinRating       = -2
	MaxRating       = 2
	MaxBiasStrength = 3
)

// ValidateRating checks z against the -2..+2 scale.
func ValidateRating(z int) error {
	if z < MinRating || z > MaxRating {
		return fmt.Errorf("rating %d outside %d..%+d: %w", z, MinRating, MaxRating, ErrInvalidRating)
	}
	return nil
}

// RateModel stores the z-rating of the output of analysis id. Rating again
// overwrites the previous value.
func (s *Store) RateModel(ctx context.Context, id string, z int) error {
	if err := ValidateRating(z); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE analyses SET model_rating = ? WHERE id = ?`, z, id)
	if err != nil {
		return fmt.Errorf("update model rating: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update model rating: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	s.logger.Debug("model rated", zap.String("id", id), zap.Int("rating", z))
	return nil
}

// ResolveID expands ref to a full analysis ID. ref is "last", a full ID,
// or an ID suffix such as the one ShortID prints.
func (s *Store) ResolveID(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty analysis reference: %w", ErrNotFound)
	}

	if ref == "last" {
		var id string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM analyses ORDER BY timestamp DESC, rowid DESC LIMIT 1`).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no analyses recorded: %w", ErrNotFound)
		}
		if err != nil {
			return "", fmt.Errorf("resolve last analysis: %w", err)
		}
		return id, nil
	}

	// IDs are UUIDs; anything else would need LIKE escaping and never matches.
	for _, r := range ref {
		if !isIDRune(r) {
			return "", fmt.Errorf("analysis %s: %w", ref, ErrNotFound)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM analyses WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC LIMIT 2`,
		ref, "%"+ref, ref)
	if err != nil {
		return "", fmt.Errorf("resolve analysis %s: %w", ref, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan analysis id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve analysis %s: %w", ref, err)
	}

	switch {
	case len(ids) == 0:
		return "", fmt.Errorf("analysis %s: %w", ref, ErrNotFound)
	case ids[0] == ref, len(ids) == 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%s matches several analyses: %w", ref, ErrAmbiguousID)
	}
}

func isIDRune(r rune) bool {
	return r == '-' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

// ChannelRating is the manual assessment of a source channel.
type ChannelRating struct {
	Channel       string
	Factual       int // z-scale
	Argument      int // z-scale
	BiasDirection string
	BiasStrength  int // 0..MaxBiasStrength
	Tags          []string
	Notes         string
	UpdatedAt     time.Time
}

// Validate checks the scores against their scales.
func (c ChannelRating) Validate() error {
	if strings.TrimSpace(c.Channel) == "" {
		return fmt.Errorf("channel name required: %w", ErrInvalidRating)
	}
	if err := ValidateRating(c.Factual); err != nil {
		return fmt.Errorf("factual: %w", err)
	}
	if err := ValidateRating(c.Argument); err != nil {
		return fmt.Errorf("argument: %w", err)
	}
	if c.BiasStrength < 0 || c.BiasStrength > MaxBiasStrength {
		return fmt.Errorf("bias strength %d outside 0..%d: %w", c.BiasStrength, MaxBiasStrength, ErrInvalidRating)
	}
	return nil
}

// SaveChannelRating inserts or replaces the rating of c.Channel.
// A zero UpdatedAt is set to the current time.
func (s *Store) SaveChannelRating(ctx context.Context, c ChannelRating) error {
	c.Channel = strings.TrimSpace(c.Channel)
	if err := c.Validate(); err != nil {
		return err
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (channel, factual_score, argument_score, bias_direction, bias_strength, mode_tags, notes, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(channel) DO UPDATE SET
			factual_score = excluded.factual_score,
			argument_score = excluded.argument_score,
			bias_direction = excluded.bias_direction,
			bias_strength = excluded.bias_strength,
			mode_tags = excluded.mode_tags,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		c.Channel, c.Factual, c.Argument, strings.TrimSpace(c.BiasDirection), c.BiasStrength,
		strings.Join(normalizeTags(c.Tags), ","), c.Notes, c.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save channel rating: %w", err)
	}
	s.logger.Debug("channel rated", zap.String("channel", c.Channel))
	return nil
}

// ChannelRating returns the stored rating of channel, or ErrUnrated.
func (s *Store) ChannelRating(ctx context.Context, channel string) (ChannelRating, error) {
	channel = strings.TrimSpace(channel)
	row := s.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE channel = ?`, channel)
	c, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ChannelRating{}, fmt.Errorf("channel %q: %w", channel, ErrUnrated)
	}
	return c, err
}

// Channels returns all rated channels ordered by name.
func (s *Store) Channels(ctx context.Context) ([]ChannelRating, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY channel`)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var channels []ChannelRating
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

const channelColumns = `channel, factual_score, argument_score, bias_direction, bias_strength, mode_tags, notes, updated_at`

func scanChannel(row scanner) (ChannelRating, error) {
	var (
		c        ChannelRating
		tags, ts string
	)
	err := row.Scan(&c.Channel, &c.Factual, &c.Argument, &c.BiasDirection, &c.BiasStrength, &tags, &c.Notes, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return ChannelRating{}, err
	}
	if err != nil {
		return ChannelRating{}, fmt.Errorf("scan channel: %w", err)
	}
	c.Tags = normalizeTags(strings.Split(tags, ","))
	c.UpdatedAt, err = time.Parse(timeLayout, ts)
	if err != nil {
		return ChannelRating{}, fmt.Errorf("parse updated_at of %s: %w", c.Channel, err)
	}
	return c, nil
}

// normalizeTags trims tags and drops empty ones and duplicates.
func normalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
