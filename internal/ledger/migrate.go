package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// migration upgrades the schema to version. Steps must be additive.
type migration struct {
	version int
	apply   func(ctx context.Context, tx *sql.Tx) error
}

var migrations = []migration{
	{1, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS analyses (
				id            TEXT PRIMARY KEY,
				timestamp     TEXT NOT NULL,
				preset_id     TEXT NOT NULL,
				perspective   TEXT NOT NULL,
				chosen_module TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_analyses_timestamp ON analyses(timestamp);
		`)
		return err
	}},
	{2, func(ctx context.Context, tx *sql.Tx) error {
		return addColumns(ctx, tx, "analyses", []columnDef{
			{"provider_id", "TEXT"},
			{"model_id", "TEXT"},
			{"tokens_used", "INTEGER"},
		})
	}},
	{3, func(ctx context.Context, tx *sql.Tx) error {
		err := addColumns(ctx, tx, "analyses", []columnDef{
			{"title", "TEXT"},
			{"channel", "TEXT"},
			{"url", "TEXT"},
			{"input_mode", "TEXT"},
			{"had_transcript", "INTEGER"},
			{"had_time_range", "INTEGER"},
			{"had_questions", "INTEGER"},
			{"preset_max_chars", "INTEGER"},
			{"result_chars", "INTEGER"},
			{"response_ms", "INTEGER"},
			{"limit_ratio", "REAL"},
			{"is_over_limit", "INTEGER"},
			{"model_rating", "INTEGER"},
		})
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS channels (
				channel        TEXT PRIMARY KEY,
				factual_score  INTEGER NOT NULL DEFAULT 0,
				argument_score INTEGER NOT NULL DEFAULT 0,
				bias_direction TEXT NOT NULL DEFAULT '',
				bias_strength  INTEGER NOT NULL DEFAULT 0,
				mode_tags      TEXT NOT NULL DEFAULT '',
				notes          TEXT NOT NULL DEFAULT '',
				updated_at     TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_analyses_channel ON analyses(channel);
		`)
		return err
	}},
}

// SchemaVersion is the version the current binary migrates to.
func SchemaVersion() int {
	return migrations[len(migrations)-1].version
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}

	current, err := s.version(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		s.logger.Debug("ledger migrated", zap.Int("version", m.version))
	}
	return nil
}

func (s *Store) version(ctx context.Context) (int, error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := m.apply(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
		return err
	}
	return tx.Commit()
}

// columnDef is a nullable column added by a migration.
type columnDef struct{ name, typ string }

// addColumns adds the missing columns to table. Columns already present are
// skipped so a partially migrated database still upgrades.
func addColumns(ctx context.Context, tx *sql.Tx, table string, cols []columnDef) error {
	for _, col := range cols {
		has, err := hasColumn(ctx, tx, table, col.name)
		if err != nil {
			return fmt.Errorf("check %s column: %w", col.name, err)
		}
		if has {
			continue
		}
		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, col.name, col.typ)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("add %s column: %w", col.name, err)
		}
	}
	return nil
}

// hasColumn checks PRAGMA table_info so re-running an ALTER never fails
// on databases that already carry the column.
func hasColumn(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
