package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"relaychat/internal/app/db"
	"relaychat/internal/app/user"
)

// Postgres is a user table kept in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a connected, migrated pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Load reads every row of the users table.
func (p *Postgres) Load(ctx context.Context) ([]user.Record, error) {
	rows, err := p.pool.Query(ctx, `SELECT name, password_digest, current_chat FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (user.Record, error) {
		var rec user.Record
		err := row.Scan(&rec.Name, &rec.PasswordDigest, &rec.CurrentChat)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}
	return records, nil
}

// Save replaces the users table in one transaction using COPY.
func (p *Postgres) Save(ctx context.Context, records []user.Record) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"users"},
		[]string{"name", "password_digest", "current_chat"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			rec := records[i]
			return []any{rec.Name, rec.PasswordDigest, rec.CurrentChat}, nil
		}),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("user table contains duplicate names: %w", err)
		}
		return fmt.Errorf("failed to copy users: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit users: %w", err)
	}
	return nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
