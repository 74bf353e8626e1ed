package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite. The raw_results table is only
// ever appended to; the aliases table is rewritten wholesale on every claim.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS raw_results (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			timestamp REAL NOT NULL,
			winner TEXT NOT NULL,
			loser TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_results_timestamp ON raw_results(timestamp)`,
		`CREATE TABLE IF NOT EXISTS aliases (
			alias TEXT PRIMARY KEY,
			player_id INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_aliases_player ON aliases(player_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendResult appends one result, ignoring duplicates by event ID.
func (s *SQLiteStore) AppendResult(ctx context.Context, r *RawResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO raw_results (event_id, timestamp, winner, loser)
		 VALUES (?, ?, ?, ?)`,
		r.EventID, r.Timestamp, r.Winner, r.Loser,
	)
	if err != nil {
		return fmt.Errorf("failed to append result %s: %w", r.EventID, err)
	}
	return nil
}

// AppendResults appends a batch inside one transaction and reports how many
// records were new.
func (s *SQLiteStore) AppendResults(ctx context.Context, rs []RawResult) (int, error) {
	if len(rs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO raw_results (event_id, timestamp, winner, loser)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range rs {
		res, err := stmt.ExecContext(ctx, r.EventID, r.Timestamp, r.Winner, r.Loser)
		if err != nil {
			return 0, fmt.Errorf("failed to append result %s: %w", r.EventID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return inserted, nil
}

// ListResults returns all logged results oldest first. Records with equal
// timestamps keep their insertion order.
func (s *SQLiteStore) ListResults(ctx context.Context) ([]RawResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, event_id, winner, loser
		 FROM raw_results ORDER BY timestamp, seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RawResult
	for rows.Next() {
		var r RawResult
		if err := rows.Scan(&r.Timestamp, &r.EventID, &r.Winner, &r.Loser); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// LastEventID returns the event ID of the most recently appended result.
func (s *SQLiteStore) LastEventID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT event_id FROM raw_results ORDER BY seq DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// SaveAliases replaces the whole claimed-alias table in one transaction.
func (s *SQLiteStore) SaveAliases(ctx context.Context, idToAliases map[int64][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM aliases`); err != nil {
		return fmt.Errorf("failed to clear aliases: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO aliases (alias, player_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for id, aliases := range idToAliases {
		for _, alias := range aliases {
			if _, err := stmt.ExecContext(ctx, alias, id); err != nil {
				return fmt.Errorf("failed to save alias %q: %w", alias, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit aliases: %w", err)
	}
	return nil
}

// LoadAliases reads the claimed-alias table.
func (s *SQLiteStore) LoadAliases(ctx context.Context) (map[int64][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT alias, player_id FROM aliases`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	idToAliases := make(map[int64][]string)
	for rows.Next() {
		var alias string
		var id int64
		if err := rows.Scan(&alias, &id); err != nil {
			return nil, err
		}
		idToAliases[id] = append(idToAliases[id], alias)
	}
	return idToAliases, rows.Err()
}
