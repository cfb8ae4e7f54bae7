package whitelist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Checker answers whether an email belongs to an active administrator.
// Lookups are point-in-time: no caching, so a change in the backing store is
// visible on the next check.
type Checker interface {
	// IsAdmin reports whether email has an active whitelist record.
	// Callers must treat any error as a denial.
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// PostgresChecker looks up whitelist membership in a Postgres table.
type PostgresChecker struct {
	pool *pgxpool.Pool
	log  *zap.SugaredLogger
}

// NewPostgresChecker connects a pool to the whitelist database.
func NewPostgresChecker(ctx context.Context, databaseURL string, log *zap.SugaredLogger) (*PostgresChecker, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting whitelist pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging whitelist database: %w", err)
	}
	return &PostgresChecker{pool: pool, log: log}, nil
}

// IsAdmin queries for an active record matching the email. A missing row is
// an ordinary denial, not an error.
func (p *PostgresChecker) IsAdmin(ctx context.Context, email string) (bool, error) {
	var active bool
	err := p.pool.QueryRow(ctx,
		`SELECT is_active FROM admin_whitelist WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying admin whitelist: %w", err)
	}
	return active, nil
}

// Close releases the connection pool.
func (p *PostgresChecker) Close() {
	p.pool.Close()
}

// StaticChecker is an in-memory Checker for tests and single-node setups.
type StaticChecker struct {
	emails map[string]bool
}

// NewStaticChecker builds a checker that treats the given emails as active
// administrators.
func NewStaticChecker(emails ...string) *StaticChecker {
	m := make(map[string]bool, len(emails))
	for _, e := range emails {
		m[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &StaticChecker{emails: m}
}

// IsAdmin reports membership in the static set.
func (s *StaticChecker) IsAdmin(_ context.Context, email string) (bool, error) {
	return s.emails[strings.ToLower(strings.TrimSpace(email))], nil
}
