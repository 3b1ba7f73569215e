// Package postgres implements the Payflow store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/xraph/payflow"
	"github.com/xraph/payflow/directory"
	"github.com/xraph/payflow/migrations"
	"github.com/xraph/payflow/receipt"
	"github.com/xraph/payflow/schedule"
	payflowstore "github.com/xraph/payflow/store"
	"github.com/xraph/payflow/stream"
)

// compile-time interface check
var _ payflowstore.Store = (*Store)(nil)

// Querier is the subset of pgxpool.Pool the store needs. It is satisfied
// by *pgxpool.Pool and by pgxmock pools in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements store.Store using PostgreSQL.
type Store struct {
	db   Querier
	pool *pgxpool.Pool
	dsn  string
}

// New connects a pgx pool and returns a store. Migrations run on
// Engine.Start via Migrate.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{db: pool, pool: pool, dsn: dsn}, nil
}

// NewWithQuerier wraps an existing querier (tests).
func NewWithQuerier(q Querier) *Store {
	return &Store{db: q}
}

// Migrate applies the embedded goose migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if s.dsn == "" {
		return nil
	}

	db, err := sql.Open("pgx", s.dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// ==================== Directory ====================

func (s *Store) CreateEntry(ctx context.Context, e *directory.Entry) error {
	const q = `
INSERT INTO payflow_directory (username, id, address, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.Exec(ctx, q, e.Username, e.ID, e.Address.String(), e.CreatedAt, e.UpdatedAt)
	if isUniqueViolation(err) {
		return payflow.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetEntry(ctx context.Context, username string) (*directory.Entry, error) {
	const q = `
SELECT username, id, address, created_at, updated_at
FROM payflow_directory WHERE username = $1`
	row := s.db.QueryRow(ctx, q, username)

	var e directory.Entry
	var addr string
	if err := row.Scan(&e.Username, &e.ID, &addr, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payflow.ErrUserNotFound
		}
		return nil, err
	}
	e.Address = payflow.Address(addr)
	return &e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e *directory.Entry) error {
	const q = `
UPDATE payflow_directory
SET address = $2, updated_at = $3
WHERE username = $1`
	tag, err := s.db.Exec(ctx, q, e.Username, e.Address.String(), e.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return payflow.ErrUserNotFound
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context) ([]*directory.Entry, error) {
	const q = `
SELECT username, id, address, created_at, updated_at
FROM payflow_directory ORDER BY username`
	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*directory.Entry, 0)
	for rows.Next() {
		var e directory.Entry
		var addr string
		if err := rows.Scan(&e.Username, &e.ID, &addr, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Address = payflow.Address(addr)
		result = append(result, &e)
	}
	return result, rows.Err()
}

// ==================== Schedules ====================

func (s *Store) PutSchedule(ctx context.Context, sch *schedule.Schedule) error {
	const q = `
INSERT INTO payflow_schedules (username, id, token, amount, next_payout, one_time, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (username) DO UPDATE SET
	id = EXCLUDED.id,
	token = EXCLUDED.token,
	amount = EXCLUDED.amount,
	next_payout = EXCLUDED.next_payout,
	one_time = EXCLUDED.one_time,
	active = EXCLUDED.active,
	created_at = EXCLUDED.created_at,
	updated_at = EXCLUDED.updated_at`
	_, err := s.db.Exec(ctx, q,
		sch.Username, sch.ID, sch.Token.String(), int64(sch.Amount),
		sch.NextPayout, sch.OneTime, sch.Active, sch.CreatedAt, sch.UpdatedAt,
	)
	return err
}

func (s *Store) GetSchedule(ctx context.Context, username string) (*schedule.Schedule, error) {
	const q = `
SELECT username, id, token, amount, next_payout, one_time, active, created_at, updated_at
FROM payflow_schedules WHERE username = $1`
	row := s.db.QueryRow(ctx, q, username)

	sch, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payflow.ErrScheduleNotFound
		}
		return nil, err
	}
	return sch, nil
}

func (s *Store) UpdateSchedule(ctx context.Context, sch *schedule.Schedule) error {
	const q = `
UPDATE payflow_schedules
SET token = $2, amount = $3, next_payout = $4, one_time = $5, active = $6, updated_at = $7
WHERE username = $1`
	tag, err := s.db.Exec(ctx, q,
		sch.Username, sch.Token.String(), int64(sch.Amount),
		sch.NextPayout, sch.OneTime, sch.Active, sch.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return payflow.ErrScheduleNotFound
	}
	return nil
}

func (s *Store) ListDueSchedules(ctx context.Context, now time.Time) ([]*schedule.Schedule, error) {
	const q = `
SELECT username, id, token, amount, next_payout, one_time, active, created_at, updated_at
FROM payflow_schedules
WHERE active AND next_payout <= $1
ORDER BY username`
	rows, err := s.db.Query(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*schedule.Schedule, 0)
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sch)
	}
	return result, rows.Err()
}

// ==================== Streams ====================

func (s *Store) PutStream(ctx context.Context, st *stream.Stream) error {
	const q = `
INSERT INTO payflow_streams (username, id, token, amount, start_date, end_date, last_payout, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (username) DO UPDATE SET
	id = EXCLUDED.id,
	token = EXCLUDED.token,
	amount = EXCLUDED.amount,
	start_date = EXCLUDED.start_date,
	end_date = EXCLUDED.end_date,
	last_payout = EXCLUDED.last_payout,
	active = EXCLUDED.active,
	created_at = EXCLUDED.created_at,
	updated_at = EXCLUDED.updated_at`
	_, err := s.db.Exec(ctx, q,
		st.Username, st.ID, st.Token.String(), int64(st.Amount),
		st.StartDate, st.EndDate, st.LastPayout, st.Active, st.CreatedAt, st.UpdatedAt,
	)
	return err
}

func (s *Store) GetStream(ctx context.Context, username string) (*stream.Stream, error) {
	const q = `
SELECT username, id, token, amount, start_date, end_date, last_payout, active, created_at, updated_at
FROM payflow_streams WHERE username = $1`
	row := s.db.QueryRow(ctx, q, username)

	st, err := scanStream(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payflow.ErrStreamNotFound
		}
		return nil, err
	}
	return st, nil
}

func (s *Store) UpdateStream(ctx context.Context, st *stream.Stream) error {
	const q = `
UPDATE payflow_streams
SET token = $2, amount = $3, last_payout = $4, active = $5, updated_at = $6
WHERE username = $1`
	tag, err := s.db.Exec(ctx, q,
		st.Username, st.Token.String(), int64(st.Amount),
		st.LastPayout, st.Active, st.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return payflow.ErrStreamNotFound
	}
	return nil
}

func (s *Store) ListActiveStreams(ctx context.Context) ([]*stream.Stream, error) {
	const q = `
SELECT username, id, token, amount, start_date, end_date, last_payout, active, created_at, updated_at
FROM payflow_streams
WHERE active
ORDER BY username`
	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*stream.Stream, 0)
	for rows.Next() {
		st, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

// ==================== Receipts ====================

func (s *Store) CreateReceipt(ctx context.Context, r *receipt.Receipt) error {
	const q = `
INSERT INTO payflow_receipts (id, username, token, recipient, amount, kind, executed_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.Exec(ctx, q,
		r.ID, r.Username, r.Token.String(), r.To.String(), int64(r.Amount),
		string(r.Kind), r.ExecutedAt, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (s *Store) ListReceipts(ctx context.Context, username string, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	const q = `
SELECT id, username, token, recipient, amount, kind, executed_at, created_at, updated_at
FROM payflow_receipts
WHERE username = $1 AND ($2 = '' OR kind = $2)
ORDER BY executed_at
LIMIT NULLIF($3, 0) OFFSET $4`
	rows, err := s.db.Query(ctx, q, username, string(opts.Kind), opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*receipt.Receipt, 0)
	for rows.Next() {
		var r receipt.Receipt
		var token, to, kind string
		var amount int64
		if err := rows.Scan(&r.ID, &r.Username, &token, &to, &amount, &kind, &r.ExecutedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Token = payflow.Token(token)
		r.To = payflow.Address(to)
		r.Amount = uint64(amount)
		r.Kind = receipt.Kind(kind)
		result = append(result, &r)
	}
	return result, rows.Err()
}

// ==================== Helpers ====================

func scanSchedule(row pgx.Row) (*schedule.Schedule, error) {
	var sch schedule.Schedule
	var token string
	var amount int64
	if err := row.Scan(&sch.Username, &sch.ID, &token, &amount,
		&sch.NextPayout, &sch.OneTime, &sch.Active, &sch.CreatedAt, &sch.UpdatedAt); err != nil {
		return nil, err
	}
	sch.Token = payflow.Token(token)
	sch.Amount = uint64(amount)
	return &sch, nil
}

func scanStream(row pgx.Row) (*stream.Stream, error) {
	var st stream.Stream
	var token string
	var amount int64
	if err := row.Scan(&st.Username, &st.ID, &token, &amount,
		&st.StartDate, &st.EndDate, &st.LastPayout, &st.Active, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	st.Token = payflow.Token(token)
	st.Amount = uint64(amount)
	return &st, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
