// Package dbexec runs parameterized SQL against the connection pool.
package dbexec

import (
	"context"
	"database/sql"
	"time"

	"versostat-graphql/internal/apperrors"

	"github.com/cockroachdb/errors"
)

// Rows is the subset of *sql.Rows the store needs. It satisfies sqlx's
// StructScan row interface.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// QueryExecutor executes read queries.
type QueryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
}

// ErrAcquireTimeout is returned when no pooled connection became available
// within the acquisition timeout.
var ErrAcquireTimeout = errors.New("timed out acquiring database connection")

// StandardExecutor runs queries on a dedicated pooled connection. Acquiring
// the connection is bounded by AcquireTimeout; the query itself only honours
// the caller's context.
type StandardExecutor struct {
	db             *sql.DB
	acquireTimeout time.Duration
}

// NewStandardExecutor creates an executor over db. A zero acquireTimeout
// waits for a connection as long as ctx allows.
func NewStandardExecutor(db *sql.DB, acquireTimeout time.Duration) *StandardExecutor {
	return &StandardExecutor{db: db, acquireTimeout: acquireTimeout}
}

// QueryContext acquires a connection and runs query on it. The connection
// returns to the pool when the returned Rows are closed. Every failure is
// classified as a DataSourceError.
func (e *StandardExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e == nil || e.db == nil {
		return nil, apperrors.DataSource(sql.ErrConnDone, "query")
	}

	conn, err := e.acquire(ctx)
	if err != nil {
		return nil, apperrors.DataSource(err, "acquire connection")
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		_ = conn.Close()
		return nil, apperrors.DataSource(err, "query")
	}
	return &connRows{Rows: rows, conn: conn}, nil
}

func (e *StandardExecutor) acquire(ctx context.Context) (*sql.Conn, error) {
	if e.acquireTimeout <= 0 {
		return e.db.Conn(ctx)
	}

	acquireCtx, cancel := context.WithTimeout(ctx, e.acquireTimeout)
	defer cancel()

	conn, err := e.db.Conn(acquireCtx)
	if err != nil {
		if errors.Is(acquireCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, errors.Mark(errors.Wrapf(err, "%s after %s", ErrAcquireTimeout, e.acquireTimeout), ErrAcquireTimeout)
		}
		return nil, err
	}
	return conn, nil
}

// connRows releases the dedicated connection together with the result set.
type connRows struct {
	*sql.Rows
	conn *sql.Conn
}

func (r *connRows) Err() error {
	if err := r.Rows.Err(); err != nil {
		return apperrors.DataSource(err, "read rows")
	}
	return nil
}

func (r *connRows) Close() error {
	rowsErr := r.Rows.Close()
	connErr := r.conn.Close()
	if rowsErr != nil {
		return rowsErr
	}
	return connErr
}
