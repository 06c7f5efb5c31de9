package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// SQLBackend keeps records in the items table of a SQLite or PostgreSQL
// database
type SQLBackend struct {
	db     *sql.DB
	flavor sqlbuilder.Flavor
}

func NewSQLBackend(db *sql.DB, backend string) *SQLBackend {
	flavor := sqlbuilder.SQLite
	if backend == BackendPostgres {
		flavor = sqlbuilder.PostgreSQL
	}
	return &SQLBackend{db: db, flavor: flavor}
}

func (s *SQLBackend) Expiry(ctx context.Context, title string) (int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	sb := s.flavor.NewSelectBuilder()
	sb.Select("expires_at").From("items").Where(sb.Equal("title", title))
	query, args := sb.Build()

	var expiresAt int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query error: %w", err)
	}
	return expiresAt, true, nil
}

func (s *SQLBackend) Put(ctx context.Context, title string, expiresAt int64) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("items").Cols("title", "expires_at").Values(title, expiresAt)
	ib.SQL("ON CONFLICT (title) DO UPDATE SET expires_at = excluded.expires_at")
	query, args := ib.Build()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	return nil
}

func (s *SQLBackend) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	del := s.flavor.NewDeleteBuilder()
	del.DeleteFrom("items").Where(del.LessEqualThan("expires_at", now))
	query, args := del.Build()

	log.WithFields(log.Fields{
		"sql":  query,
		"args": args,
	}).Debug("Deleting expired items")

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete error: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLBackend) Close() error {
	return s.db.Close()
}
