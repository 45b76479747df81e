// Package postgres provides a PostgreSQL implementation of audit.Store
// using a pgx/v5 connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Halvra/cas/pkg/audit"
)

// uniqueViolation is the PostgreSQL SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// Store is a PostgreSQL-backed audit store.
type Store struct {
	pool *pgxpool.Pool
}

var _ audit.Store = (*Store)(nil)

// New connects to PostgreSQL and, if MigrateOnStart is set, applies the
// schema migrations.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Record inserts one event.
func (s *Store) Record(ctx context.Context, ev audit.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mfa_events (
			id, subject, tenant_id, request_id, status, server, contacted, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		ev.ID, ev.Subject, ev.TenantID, ev.RequestID,
		ev.Status, ev.Server, ev.Contacted, ev.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return audit.ErrConflict
		}
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// List returns the subject's events, newest first.
func (s *Store) List(ctx context.Context, opts audit.ListOptions) (*audit.EventList, error) {
	opts.Normalize()

	query := `
		SELECT id, subject, tenant_id, request_id, status, server, contacted, created_at
		FROM mfa_events
		WHERE subject = $1
	`
	args := []any{opts.Subject}

	if opts.TenantID != "" {
		args = append(args, opts.TenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	if !opts.Before.IsZero() {
		args = append(args, opts.Before)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	// Fetch one extra row to detect has_more.
	args = append(args, opts.Limit+1)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()

	result := &audit.EventList{}
	for rows.Next() {
		var ev audit.Event
		if err := rows.Scan(
			&ev.ID, &ev.Subject, &ev.TenantID, &ev.RequestID,
			&ev.Status, &ev.Server, &ev.Contacted, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		result.Events = append(result.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}

	if len(result.Events) > opts.Limit {
		result.HasMore = true
		result.Events = result.Events[:opts.Limit]
	}
	return result, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
