package account

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGO
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id         TEXT PRIMARY KEY,
	username        TEXT NOT NULL DEFAULT '',
	affection       INTEGER NOT NULL DEFAULT 0,
	bond_level      INTEGER NOT NULL DEFAULT 0,
	bonds_available INTEGER NOT NULL DEFAULT 0,
	free_feed_used  INTEGER NOT NULL DEFAULT 0,
	owns_feather    INTEGER NOT NULL DEFAULT 0,
	owns_brush      INTEGER NOT NULL DEFAULT 0,
	owns_scratcher  INTEGER NOT NULL DEFAULT 0,
	last_fed_at     INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_accounts_bond_level ON accounts (bond_level DESC);
`

// SQLiteStore implements Store on a local SQLite file. Handy for running the
// bot without a Postgres instance; single writer is plenty for one channel.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init accounts schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) CreateAccount(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, username, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, id, name, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("create account %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) GetField(ctx context.Context, id, field string) (int64, error) {
	if err := checkField(field); err != nil {
		return 0, err
	}
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT `+field+` FROM accounts WHERE user_id = ?`, id).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: %s", ErrNoAccount, id)
	}
	if err != nil {
		return 0, fmt.Errorf("get %s for %s: %w", field, id, err)
	}
	return v, nil
}

func (s *SQLiteStore) SetField(ctx context.Context, id, field string, value int64) error {
	if err := checkField(field); err != nil {
		return err
	}
	return s.exec(ctx, id, `UPDATE accounts SET `+field+` = ? WHERE user_id = ?`, value, id)
}

func (s *SQLiteStore) IncrementField(ctx context.Context, id, field string, delta int64) error {
	if err := checkField(field); err != nil {
		return err
	}
	return s.exec(ctx, id, `UPDATE accounts SET `+field+` = `+field+` + ? WHERE user_id = ?`, delta, id)
}

func (s *SQLiteStore) DecrementField(ctx context.Context, id, field string, delta int64) error {
	if err := checkField(field); err != nil {
		return err
	}
	return s.exec(ctx, id, `UPDATE accounts SET `+field+` = MAX(`+field+` - ?, 0) WHERE user_id = ?`, delta, id)
}

func (s *SQLiteStore) exec(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update account %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNoAccount, id)
	}
	return nil
}

func (s *SQLiteStore) GetColumn(ctx context.Context, field string) (map[string]int64, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, `+field+` FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("get column %s: %w", field, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id string
		var v int64
		if err := rows.Scan(&id, &v); err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetTopByColumn(ctx context.Context, column, orderColumn string, limit int, excludeID string) ([]TopEntry, error) {
	if err := checkField(column); err != nil {
		return nil, err
	}
	if err := checkField(orderColumn); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, username, `+column+`
		FROM accounts
		WHERE user_id <> ?
		ORDER BY `+orderColumn+` DESC
		LIMIT ?
	`, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("top by %s: %w", orderColumn, err)
	}
	defer rows.Close()

	var out []TopEntry
	for rows.Next() {
		var e TopEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Value); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
