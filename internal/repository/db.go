package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgx used by the repositories. *pgxpool.Pool, pgx.Tx
// and pgxmock pools all satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repositories groups the stores bound to one connection or transaction
type Repositories struct {
	Users         UserRepository
	Reports       ReportRepository
	StatusUpdates StatusUpdateRepository
}

// Store hands out repositories and runs units of work atomically
type Store interface {
	Repos() Repositories
	InTx(ctx context.Context, fn func(repos Repositories) error) error
}

type store struct {
	db DB
}

// NewStore creates a Store backed by db
func NewStore(db DB) Store {
	return &store{db: db}
}

func newRepositories(db DB) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		Reports:       NewReportRepository(db),
		StatusUpdates: NewStatusUpdateRepository(db),
	}
}

// Repos returns repositories that run each statement on its own
func (s *store) Repos() Repositories {
	return newRepositories(s.db)
}

// InTx runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *store) InTx(ctx context.Context, fn func(repos Repositories) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(ctx)
	}()

	if err := fn(newRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
