package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 10 * time.Millisecond
)

// Store wraps DB access. Queries run outside any transaction through the
// embedded *Queries; multi-row mutations go through InTx.
type Store struct {
	*Queries
	DB      *sqlx.DB
	Dialect Dialect

	MaxRetries int
	RetryDelay time.Duration
}

// ParseDSN picks the dialect from the DSN. postgres:// and postgresql:// URLs
// use pgx, everything else is handed to SQLite with an optional sqlite:
// prefix stripped.
func ParseDSN(dsn string) (Dialect, string) {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres, dsn
	}
	return DialectSQLite, strings.TrimPrefix(dsn, "sqlite:")
}

func New(dsn string) (*Store, error) {
	return Open(context.Background(), dsn)
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	dialect, source := ParseDSN(dsn)
	driver := "pgx"
	if dialect == DialectSQLite {
		driver = "sqlite"
	}
	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite {
		// One connection keeps :memory: databases alive and serialises writers.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("store: %s: %w", pragma, err)
			}
		}
	}
	return &Store{
		Queries:    &Queries{db: db, dialect: dialect},
		DB:         db,
		Dialect:    dialect,
		MaxRetries: defaultMaxRetries,
		RetryDelay: defaultRetryDelay,
	}, nil
}

func (s *Store) Close() {
	if s.DB != nil {
		_ = s.DB.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.DB.PingContext(ctx)
}

// InTx runs fn inside a transaction, committing when fn returns nil. The
// whole attempt is retried on serialization failures and deadlocks, so fn
// must not have side effects outside q.
func (s *Store) InTx(ctx context.Context, fn func(q *Queries) error) error {
	return WithRetry(ctx, s.MaxRetries, s.RetryDelay, func() error {
		tx, err := s.DB.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := fn(&Queries{db: tx, dialect: s.Dialect}); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Queries holds every statement the arena issues. It runs against either the
// pool or an open transaction.
type Queries struct {
	db      sqlx.ExtContext
	dialect Dialect
}

func (q *Queries) get(ctx context.Context, dest any, query string, args ...any) error {
	return mapNotFound(sqlx.GetContext(ctx, q.db, dest, q.db.Rebind(query), args...))
}

func (q *Queries) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q.db, dest, q.db.Rebind(query), args...)
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// forUpdate is the row-lock suffix for SELECTs. SQLite has no row locks; its
// single writer already serialises the transaction.
func (q *Queries) forUpdate() string {
	if q.dialect == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// inClause expands to "?, ?, ..." for n arguments.
func inClause(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ts normalises a timestamp before binding. SQLite compares DATETIME columns
// as text, which orders correctly only for a single zone.
func ts(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func tsPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := ts(*t)
	return &v
}
