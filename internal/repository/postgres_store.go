package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	defaultOpTimeout  = 3 * time.Second
	defaultMaxRetries = 5
	defaultBackoff    = 20 * time.Millisecond
)

// execer is what *sql.DB and *sql.Tx have in common.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	pgTables
	db         *sql.DB
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an open pool. Non-positive opTimeout and negative
// maxRetries fall back to defaults.
func NewPostgresStore(db *sql.DB, opTimeout time.Duration, maxRetries int, logger *zap.Logger) *PostgresStore {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{
		pgTables:   pgTables{q: db, timeout: opTimeout},
		db:         db,
		maxRetries: maxRetries,
		backoff:    defaultBackoff,
		logger:     logger,
	}
}

// Atomic runs fn in a transaction holding pg_advisory_xact_lock for key.
// The lock is released by commit or rollback.
func (s *PostgresStore) Atomic(ctx context.Context, key LockKey, fn func(Tables) error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * s.backoff
			s.logger.Debug("retrying atomic unit of work",
				zap.String("lock_key", key.String()),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return classify(ctx, ctx.Err())
			case <-time.After(wait):
			}
		}

		err = s.atomicOnce(ctx, key, fn)
		if domain.KindOf(err) != domain.KindContention {
			return err
		}
	}
	s.logger.Warn("atomic unit of work gave up after retries",
		zap.String("lock_key", key.String()),
		zap.Int("max_retries", s.maxRetries),
		zap.Error(err),
	)
	return err
}

func (s *PostgresStore) atomicOnce(ctx context.Context, key LockKey, fn func(Tables) error) error {
	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return classify(txCtx, fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(txCtx, "SELECT pg_advisory_xact_lock($1)", key.advisoryID()); err != nil {
		return classify(txCtx, fmt.Errorf("lock %s: %w", key, err))
	}

	if err := fn(pgTables{q: tx, timeout: s.timeout, txCtx: txCtx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(txCtx, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// pgTables runs single statements against a pool or a transaction.
type pgTables struct {
	q       execer
	timeout time.Duration
	// txCtx bounds statements issued inside Atomic by the transaction deadline.
	txCtx context.Context
}

func (t pgTables) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.txCtx != nil {
		if err := t.txCtx.Err(); err != nil {
			ctx = t.txCtx
		} else if dl, ok := t.txCtx.Deadline(); ok {
			c, cancel := context.WithDeadline(ctx, dl)
			return c, cancel
		}
	}
	return context.WithTimeout(ctx, t.timeout)
}

func (t pgTables) Get(ctx context.Context, l Lookup) (Result, error) {
	_, cols, q, args, err := buildSelect(l)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := t.opContext(ctx)
	defer cancel()

	rows, err := t.q.QueryContext(ctx, q, args...)
	if err != nil {
		return Result{}, classify(ctx, fmt.Errorf("select %s: %w", l.Table, err))
	}
	defer rows.Close()

	var res Result
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, classify(ctx, fmt.Errorf("scan %s: %w", l.Table, err))
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			rec[c] = normalizeValue(vals[i])
		}
		res.Rows = append(res.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return Result{}, classify(ctx, fmt.Errorf("iterate %s: %w", l.Table, err))
	}
	return res, nil
}

func (t pgTables) Insert(ctx context.Context, table string, values []Predicate) (int64, error) {
	schema, q, args, err := buildInsert(table, values)
	if err != nil {
		return 0, err
	}

	ctx, cancel := t.opContext(ctx)
	defer cancel()

	if !schema.hasID {
		if _, err := t.q.ExecContext(ctx, q, args...); err != nil {
			return 0, classify(ctx, fmt.Errorf("insert %s: %w", table, err))
		}
		return 0, nil
	}

	var id int64
	if err := t.q.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, classify(ctx, fmt.Errorf("insert %s: %w", table, err))
	}
	return id, nil
}

func (t pgTables) Update(ctx context.Context, table string, key []Predicate, values []Predicate) error {
	q, args, err := buildUpdate(table, key, values)
	if err != nil {
		return err
	}

	ctx, cancel := t.opContext(ctx)
	defer cancel()

	res, err := t.q.ExecContext(ctx, q, args...)
	if err != nil {
		return classify(ctx, fmt.Errorf("update %s: %w", table, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(ctx, fmt.Errorf("update %s rows affected: %w", table, err))
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t pgTables) Delete(ctx context.Context, table string, where []Predicate) (int64, error) {
	q, args, err := buildDelete(table, where)
	if err != nil {
		return 0, err
	}

	ctx, cancel := t.opContext(ctx)
	defer cancel()

	res, err := t.q.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, classify(ctx, fmt.Errorf("delete %s: %w", table, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(ctx, fmt.Errorf("delete %s rows affected: %w", table, err))
	}
	return n, nil
}

func (t pgTables) Max(ctx context.Context, table, column string, where []Predicate) (int64, bool, error) {
	q, args, err := buildMax(table, column, where)
	if err != nil {
		return 0, false, err
	}

	ctx, cancel := t.opContext(ctx)
	defer cancel()

	var top sql.NullInt64
	if err := t.q.QueryRowContext(ctx, q, args...).Scan(&top); err != nil {
		return 0, false, classify(ctx, fmt.Errorf("max %s.%s: %w", table, column, err))
	}
	return top.Int64, top.Valid, nil
}

// classify maps driver failures onto domain kinds. The operation context is
// consulted first so a deadline is reported as a timeout whatever error the
// driver produced for it.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return domain.Wrap(domain.KindTimeout, domain.ErrTimeout.Message, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return domain.Wrap(domain.KindConflict, "conflict", err)
		case "23503": // foreign_key_violation: the referenced row is gone
			return domain.Wrap(domain.KindNotFound, domain.ErrNotFound.Message, err)
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return domain.Wrap(domain.KindContention, domain.ErrContention.Message, err)
		case "57014": // query_canceled (statement_timeout)
			return domain.Wrap(domain.KindTimeout, domain.ErrTimeout.Message, err)
		}
	}
	return domain.Wrap(domain.KindStorage, domain.ErrStorage.Message, err)
}
