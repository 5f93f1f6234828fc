package suppression

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Aviral2610/Lead-gen/internal/domain"
)

// PostgresStore keeps the table in a Postgres table with one row per email.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore returns a store over the named table.
func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	if table == "" {
		table = "suppression_list"
	}
	return &PostgresStore{db: db, table: pq.QuoteIdentifier(table)}
}

// EnsureSchema creates the table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id       UUID PRIMARY KEY,
			email    TEXT NOT NULL UNIQUE,
			reason   TEXT NOT NULL,
			source   TEXT NOT NULL,
			added_at TIMESTAMPTZ NOT NULL
		)`, s.table))
	if err != nil {
		return fmt.Errorf("create suppression table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (Table, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT email, reason, source, added_at FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("load suppressions: %w", err)
	}
	defer rows.Close()

	t := Table{}
	for rows.Next() {
		var (
			email string
			rec   domain.SuppressionRecord
		)
		if err := rows.Scan(&email, &rec.Reason, &rec.Source, &rec.AddedAt); err != nil {
			return nil, fmt.Errorf("scan suppression: %w", err)
		}
		t[email] = rec
	}
	return t, rows.Err()
}

// Save rewrites the table inside one transaction.
func (s *PostgresStore) Save(ctx context.Context, t Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
		return fmt.Errorf("clear suppressions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, email, reason, source, added_at) VALUES ($1, $2, $3, $4, $5)`, s.table))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for email, rec := range t {
		if _, err := stmt.ExecContext(ctx, uuid.New().String(), email, string(rec.Reason), string(rec.Source), rec.AddedAt); err != nil {
			return fmt.Errorf("insert suppression: %w", err)
		}
	}
	return tx.Commit()
}
