package store

import (
	"context"
	"database/sql"
	"fmt"

	"relaychat/internal/app/db"
	"relaychat/internal/app/user"
)

// SQL is a user table kept in a database/sql handle (SQLite).
type SQL struct {
	db *sql.DB
}

// NewSQL wraps an open, migrated database handle.
func NewSQL(conn *sql.DB) *SQL {
	return &SQL{db: conn}
}

// Load reads every row of the users table.
func (s *SQL) Load(ctx context.Context) ([]user.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, password_digest, current_chat FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var records []user.Record
	for rows.Next() {
		var (
			rec  user.Record
			chat sql.NullString
		)
		if err := rows.Scan(&rec.Name, &rec.PasswordDigest, &chat); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		if chat.Valid {
			rec.CurrentChat = &chat.String
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return records, nil
}

// Save replaces the users table in one transaction.
func (s *SQL) Save(ctx context.Context, records []user.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO users (name, password_digest, current_chat) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Name, rec.PasswordDigest, nullableChat(rec.CurrentChat)); err != nil {
			if db.IsUniqueViolation(err) {
				return fmt.Errorf("user table contains duplicate name %s: %w", rec.Name, err)
			}
			return fmt.Errorf("failed to insert user %s: %w", rec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit users: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQL) Close() error {
	return s.db.Close()
}

func nullableChat(chat *string) sql.NullString {
	if chat == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *chat, Valid: true}
}
