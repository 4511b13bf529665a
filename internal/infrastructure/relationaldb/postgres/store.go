// Package postgres provides a PostgreSQL store for terms, relationships,
// learning progress and the audit log. Each glossary lives in its own schema.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ersonp/termgraph/internal/infrastructure/config"
)

// PostgreSQL error codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store implements ports.RelationshipStore, ports.TermCatalog,
// ports.LearningProgress, ports.AuditLog and ports.HierarchyLocker.
type Store struct {
	pool   *pgxpool.Pool
	schema string
	logger *zap.Logger
}

// NewStore connects to PostgreSQL with search_path pinned to schema.
func NewStore(ctx context.Context, cfg config.PostgresConfig, schema string, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	if schema == "" {
		return nil, errors.New("postgres schema is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 4
	}
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool:   pool,
		schema: schema,
		logger: logger.Named("postgres").With(zap.String("schema", schema)),
	}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Schema returns the schema holding this glossary.
func (s *Store) Schema() string {
	return s.schema
}

// EnsureSchema creates the schema and tables if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := pgx.Identifier{s.schema}.Sanitize()
	ddl := `
	CREATE SCHEMA IF NOT EXISTS ` + schema + `;

	CREATE TABLE IF NOT EXISTS ` + schema + `.terms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		context_id TEXT NOT NULL DEFAULT '',
		definition TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		essential BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_terms_context ON ` + schema + `.terms(context_id);

	CREATE TABLE IF NOT EXISTS ` + schema + `.relationships (
		id TEXT PRIMARY KEY,
		source_term_id TEXT NOT NULL,
		target_term_id TEXT NOT NULL,
		type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (source_term_id, target_term_id, type),
		CHECK (source_term_id <> target_term_id)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_source ON ` + schema + `.relationships(source_term_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_target ON ` + schema + `.relationships(target_term_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_type ON ` + schema + `.relationships(type);

	CREATE TABLE IF NOT EXISTS ` + schema + `.learned_terms (
		user_id TEXT NOT NULL,
		term_id TEXT NOT NULL REFERENCES ` + schema + `.terms(id) ON DELETE CASCADE,
		learned_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, term_id)
	);

	CREATE TABLE IF NOT EXISTS ` + schema + `.audit_log (
		id BIGSERIAL PRIMARY KEY,
		action TEXT NOT NULL,
		relationship_id TEXT,
		details JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_relationship ON ` + schema + `.audit_log(relationship_id);
	`

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating schema %s: %w", s.schema, err)
	}
	return nil
}

// DropSchema removes the glossary schema and all of its data.
func (s *Store) DropSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{s.schema}.Sanitize()+` CASCADE`); err != nil {
		return fmt.Errorf("dropping schema %s: %w", s.schema, err)
	}
	return nil
}

// LockHierarchy takes a session-level advisory lock scoped to the schema so
// that hierarchical mutations from several processes run one at a time.
func (s *Store) LockHierarchy(ctx context.Context) (func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for hierarchy lock: %w", err)
	}

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, s.schema); err != nil {
		conn.Release()
		return nil, fmt.Errorf("taking hierarchy lock: %w", err)
	}

	return func() {
		// The caller's context may already be cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock(hashtext($1))`, s.schema); err != nil {
			s.logger.Warn("failed to release hierarchy lock", zap.Error(err))
			// Closing the session drops any advisory locks it holds.
			conn.Conn().Close(unlockCtx)
		}
		conn.Release()
	}, nil
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
