package db

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// RetryConfig bounds the retry behavior of the Executor. The worst-case added
// latency for one operation is sum(min(BaseDelay<<i, MaxDelay)) over MaxRetries.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// retryablePgCodes is the closed set of Postgres error codes treated as
// transient. Anything not listed here or in retryableSubstrings propagates
// on the first attempt.
var retryablePgCodes = map[string]bool{
	"57014": true, // query_canceled
	"08006": true, // connection_failure
	"08001": true, // sqlclient_unable_to_establish_sqlconnection
	"57P01": true, // admin_shutdown
	"53300": true, // too_many_connections
}

var retryableSubstrings = []string{
	"connection reset",
	"connection refused",
	"broken pipe",
	"i/o timeout",
	"terminated",
	"unexpected eof",
}

// brokenConnSubstrings marks errors where the underlying socket is dead and
// must not be reused, as opposed to merely slow.
var brokenConnSubstrings = []string{
	"connection reset",
	"broken pipe",
	"terminated",
	"unexpected eof",
	"i/o timeout",
}

var brokenConnPgCodes = map[string]bool{
	"08006": true,
	"08001": true,
	"57P01": true,
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryablePgCodes[pgErr.Code]
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func isConnBroken(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return brokenConnPgCodes[pgErr.Code]
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range brokenConnSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// conn is the subset of *pgxpool.Conn the executor needs. Destroy closes the
// underlying connection so the pool cannot hand it out again.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Release()
	Destroy(ctx context.Context)
}

type connSource interface {
	Acquire(ctx context.Context) (conn, error)
}

type poolConn struct {
	*pgxpool.Conn
}

var (
	_ conn       = poolConn{}
	_ connSource = poolSource{}
)

func (c poolConn) Destroy(ctx context.Context) {
	// Closing the underlying pgx.Conn marks it dead; Release then drops it
	// from the pool instead of recycling it.
	_ = c.Conn.Conn().Close(ctx)
	c.Conn.Release()
}

type poolSource struct {
	pool *pgxpool.Pool
}

func (s poolSource) Acquire(ctx context.Context) (conn, error) {
	c, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return poolConn{c}, nil
}

// Executor wraps the connection pool so that transient failures are retried
// with exponential backoff. Only the closed retryable error set is retried;
// everything else propagates immediately, and after exhausting the budget the
// last error is returned verbatim. When an attempt fails because the
// connection itself broke, the dead connection is destroyed and a fresh one is
// acquired before retrying; replacement is local to the operation and never
// touches other connections.
//
// Result sets are not resumed mid-stream: if iteration over Query rows fails,
// the error surfaces from rows.Err() rather than being retried or truncated.
type Executor struct {
	source connSource
	pool   *pgxpool.Pool
	cfg    RetryConfig
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewExecutor(pool *pgxpool.Pool, cfg RetryConfig, logger zerolog.Logger) *Executor {
	return &Executor{
		source: poolSource{pool: pool},
		pool:   pool,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *Executor) backoff(attempt int) time.Duration {
	d := e.cfg.BaseDelay << attempt
	if d > e.cfg.MaxDelay || d <= 0 {
		d = e.cfg.MaxDelay
	}
	return d
}

// withRetry acquires a connection and runs op against it under the retry
// policy. op must be safe to re-run in full, which holds for single
// statements. The connection is always released before returning.
func (e *Executor) withRetry(ctx context.Context, op func(c conn) error) error {
	c, err := e.source.Acquire(ctx)
	if err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		err = op(c)
		if err == nil {
			c.Release()
			return nil
		}

		if !isRetryable(err) || attempt >= e.cfg.MaxRetries {
			c.Release()
			return err
		}

		delay := e.backoff(attempt)
		e.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", e.cfg.MaxRetries).
			Dur("delay", delay).
			Msg("retrying transient db error")

		if isConnBroken(err) {
			c.Destroy(ctx)
			replacement, acqErr := e.source.Acquire(ctx)
			if acqErr != nil {
				return acqErr
			}
			c = replacement
		}

		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			c.Release()
			return sleepErr
		}
	}
}

func (e *Executor) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	var tag pgconn.CommandTag
	err := e.withRetry(ctx, func(c conn) error {
		var opErr error
		tag, opErr = c.Exec(ctx, sql, args...)
		return opErr
	})
	return tag, err
}

// Query retries query submission only. Once rows are streaming the operation
// is out of retry scope; callers observe interruption through rows.Err().
func (e *Executor) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c, err := e.source.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		rows, opErr := c.Query(ctx, sql, args...)
		if opErr == nil {
			return releasingRows{Rows: rows, conn: c}, nil
		}

		if !isRetryable(opErr) || attempt >= e.cfg.MaxRetries {
			c.Release()
			return nil, opErr
		}

		delay := e.backoff(attempt)
		e.logger.Warn().
			Err(opErr).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("retrying transient db error")

		if isConnBroken(opErr) {
			c.Destroy(ctx)
			replacement, acqErr := e.source.Acquire(ctx)
			if acqErr != nil {
				return nil, acqErr
			}
			c = replacement
		}

		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			c.Release()
			return nil, sleepErr
		}
	}
}

// QueryRow defers execution to Scan, where the full retry policy applies.
func (e *Executor) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &retryRow{e: e, ctx: ctx, sql: sql, args: args}
}

// Begin passes through to the pool unchanged. Statements inside a transaction
// are not retried: replaying part of a transaction on a fresh connection would
// silently drop the earlier statements.
func (e *Executor) Begin(ctx context.Context) (pgx.Tx, error) {
	return e.pool.Begin(ctx)
}

type retryRow struct {
	e    *Executor
	ctx  context.Context
	sql  string
	args []any
}

func (r *retryRow) Scan(dest ...any) error {
	return r.e.withRetry(r.ctx, func(c conn) error {
		return c.QueryRow(r.ctx, r.sql, r.args...).Scan(dest...)
	})
}

// releasingRows returns the connection to the pool when the caller closes the
// rows, mirroring pgxpool.Pool.Query behavior for an explicitly held conn.
type releasingRows struct {
	pgx.Rows
	conn conn
}

func (r releasingRows) Close() {
	r.Rows.Close()
	r.conn.Release()
}
