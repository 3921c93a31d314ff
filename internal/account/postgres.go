package account

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id         TEXT PRIMARY KEY,
	username        TEXT NOT NULL DEFAULT '',
	affection       BIGINT NOT NULL DEFAULT 0,
	bond_level      BIGINT NOT NULL DEFAULT 0,
	bonds_available BIGINT NOT NULL DEFAULT 0,
	free_feed_used  BIGINT NOT NULL DEFAULT 0,
	owns_feather    BIGINT NOT NULL DEFAULT 0,
	owns_brush      BIGINT NOT NULL DEFAULT 0,
	owns_scratcher  BIGINT NOT NULL DEFAULT 0,
	last_fed_at     BIGINT NOT NULL DEFAULT 0,
	created_at      BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_accounts_bond_level ON accounts (bond_level DESC);
`

// PostgresStore implements Store on a pgx pool. Field names are validated
// against the allowlist before they are spliced into column positions.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, db *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := db.Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("init accounts schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, id, name string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (user_id, username, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, id, name, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("create account %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) GetField(ctx context.Context, id, field string) (int64, error) {
	if err := checkField(field); err != nil {
		return 0, err
	}
	var v int64
	err := s.db.QueryRow(ctx, `SELECT `+field+` FROM accounts WHERE user_id = $1`, id).Scan(&v)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("%w: %s", ErrNoAccount, id)
	}
	if err != nil {
		return 0, fmt.Errorf("get %s for %s: %w", field, id, err)
	}
	return v, nil
}

func (s *PostgresStore) SetField(ctx context.Context, id, field string, value int64) error {
	if err := checkField(field); err != nil {
		return err
	}
	cmd, err := s.db.Exec(ctx, `UPDATE accounts SET `+field+` = $1 WHERE user_id = $2`, value, id)
	if err != nil {
		return fmt.Errorf("set %s for %s: %w", field, id, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNoAccount, id)
	}
	return nil
}

func (s *PostgresStore) IncrementField(ctx context.Context, id, field string, delta int64) error {
	if err := checkField(field); err != nil {
		return err
	}
	cmd, err := s.db.Exec(ctx, `UPDATE accounts SET `+field+` = `+field+` + $1 WHERE user_id = $2`, delta, id)
	if err != nil {
		return fmt.Errorf("increment %s for %s: %w", field, id, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNoAccount, id)
	}
	return nil
}

func (s *PostgresStore) DecrementField(ctx context.Context, id, field string, delta int64) error {
	if err := checkField(field); err != nil {
		return err
	}
	cmd, err := s.db.Exec(ctx, `UPDATE accounts SET `+field+` = GREATEST(`+field+` - $1, 0) WHERE user_id = $2`, delta, id)
	if err != nil {
		return fmt.Errorf("decrement %s for %s: %w", field, id, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNoAccount, id)
	}
	return nil
}

func (s *PostgresStore) GetColumn(ctx context.Context, field string) (map[string]int64, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `SELECT user_id, `+field+` FROM accounts`)
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

func (s *PostgresStore) GetTopByColumn(ctx context.Context, column, orderColumn string, limit int, excludeID string) ([]TopEntry, error) {
	if err := checkField(column); err != nil {
		return nil, err
	}
	if err := checkField(orderColumn); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT user_id, username, `+column+`
		FROM accounts
		WHERE user_id <> $1
		ORDER BY `+orderColumn+` DESC
		LIMIT $2
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

func (s *PostgresStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id FROM accounts`)
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
