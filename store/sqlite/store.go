// Package sqlite implements the Payflow store on SQLite. It uses the
// pure-Go modernc.org/sqlite driver, so it builds without cgo.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xraph/payflow"
	"github.com/xraph/payflow/directory"
	"github.com/xraph/payflow/receipt"
	"github.com/xraph/payflow/schedule"
	payflowstore "github.com/xraph/payflow/store"
	"github.com/xraph/payflow/stream"
)

// compile-time interface check
var _ payflowstore.Store = (*Store)(nil)

// Store implements store.Store using a SQLite database file.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path. Use ":memory:" for an
// ephemeral database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc's driver misbehaves with concurrent writers on one file.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Migrate creates the schema if it does not exist. Timestamps are stored
// as unix nanoseconds.
func (s *Store) Migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS payflow_directory (
	username   TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	address    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS payflow_schedules (
	username    TEXT PRIMARY KEY REFERENCES payflow_directory(username),
	id          TEXT NOT NULL,
	token       TEXT NOT NULL,
	amount      INTEGER NOT NULL,
	next_payout INTEGER NOT NULL,
	one_time    INTEGER NOT NULL,
	active      INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS payflow_streams (
	username    TEXT PRIMARY KEY REFERENCES payflow_directory(username),
	id          TEXT NOT NULL,
	token       TEXT NOT NULL,
	amount      INTEGER NOT NULL,
	start_date  INTEGER NOT NULL,
	end_date    INTEGER NOT NULL,
	last_payout INTEGER NOT NULL,
	active      INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS payflow_receipts (
	id          TEXT PRIMARY KEY,
	username    TEXT NOT NULL,
	token       TEXT NOT NULL,
	recipient   TEXT NOT NULL,
	amount      INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	executed_at INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payflow_receipts_username
	ON payflow_receipts(username, executed_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Directory ====================

func (s *Store) CreateEntry(ctx context.Context, e *directory.Entry) error {
	const q = `
INSERT INTO payflow_directory (username, id, address, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, e.Username, e.ID.String(), e.Address.String(),
		toNano(e.CreatedAt), toNano(e.UpdatedAt))
	if isUniqueViolation(err) {
		return payflow.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetEntry(ctx context.Context, username string) (*directory.Entry, error) {
	const q = `
SELECT username, id, address, created_at, updated_at
FROM payflow_directory WHERE username = ?`
	row := s.db.QueryRowContext(ctx, q, username)

	var e directory.Entry
	var addr string
	var created, updated int64
	if err := row.Scan(&e.Username, &e.ID, &addr, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payflow.ErrUserNotFound
		}
		return nil, err
	}
	e.Address = payflow.Address(addr)
	e.CreatedAt = fromNano(created)
	e.UpdatedAt = fromNano(updated)
	return &e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e *directory.Entry) error {
	const q = `
UPDATE payflow_directory SET address = ?, updated_at = ? WHERE username = ?`
	res, err := s.db.ExecContext(ctx, q, e.Address.String(), toNano(e.UpdatedAt), e.Username)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payflow.ErrUserNotFound
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context) ([]*directory.Entry, error) {
	const q = `
SELECT username, id, address, created_at, updated_at
FROM payflow_directory ORDER BY username`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*directory.Entry, 0)
	for rows.Next() {
		var e directory.Entry
		var addr string
		var created, updated int64
		if err := rows.Scan(&e.Username, &e.ID, &addr, &created, &updated); err != nil {
			return nil, err
		}
		e.Address = payflow.Address(addr)
		e.CreatedAt = fromNano(created)
		e.UpdatedAt = fromNano(updated)
		result = append(result, &e)
	}
	return result, rows.Err()
}

// ==================== Schedules ====================

func (s *Store) PutSchedule(ctx context.Context, sch *schedule.Schedule) error {
	const q = `
INSERT INTO payflow_schedules (username, id, token, amount, next_payout, one_time, active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (username) DO UPDATE SET
	id = excluded.id,
	token = excluded.token,
	amount = excluded.amount,
	next_payout = excluded.next_payout,
	one_time = excluded.one_time,
	active = excluded.active,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, q,
		sch.Username, sch.ID.String(), sch.Token.String(), int64(sch.Amount),
		toNano(sch.NextPayout), sch.OneTime, sch.Active,
		toNano(sch.CreatedAt), toNano(sch.UpdatedAt),
	)
	return err
}

func (s *Store) GetSchedule(ctx context.Context, username string) (*schedule.Schedule, error) {
	const q = `
SELECT username, id, token, amount, next_payout, one_time, active, created_at, updated_at
FROM payflow_schedules WHERE username = ?`
	row := s.db.QueryRowContext(ctx, q, username)

	sch, err := scanSchedule(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payflow.ErrScheduleNotFound
		}
		return nil, err
	}
	return sch, nil
}

func (s *Store) UpdateSchedule(ctx context.Context, sch *schedule.Schedule) error {
	const q = `
UPDATE payflow_schedules
SET token = ?, amount = ?, next_payout = ?, one_time = ?, active = ?, updated_at = ?
WHERE username = ?`
	res, err := s.db.ExecContext(ctx, q,
		sch.Token.String(), int64(sch.Amount), toNano(sch.NextPayout),
		sch.OneTime, sch.Active, toNano(sch.UpdatedAt), sch.Username,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payflow.ErrScheduleNotFound
	}
	return nil
}

func (s *Store) ListDueSchedules(ctx context.Context, now time.Time) ([]*schedule.Schedule, error) {
	const q = `
SELECT username, id, token, amount, next_payout, one_time, active, created_at, updated_at
FROM payflow_schedules
WHERE active AND next_payout <= ?
ORDER BY username`
	rows, err := s.db.QueryContext(ctx, q, toNano(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*schedule.Schedule, 0)
	for rows.Next() {
		sch, err := scanSchedule(rows.Scan)
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
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (username) DO UPDATE SET
	id = excluded.id,
	token = excluded.token,
	amount = excluded.amount,
	start_date = excluded.start_date,
	end_date = excluded.end_date,
	last_payout = excluded.last_payout,
	active = excluded.active,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, q,
		st.Username, st.ID.String(), st.Token.String(), int64(st.Amount),
		toNano(st.StartDate), toNano(st.EndDate), toNano(st.LastPayout), st.Active,
		toNano(st.CreatedAt), toNano(st.UpdatedAt),
	)
	return err
}

func (s *Store) GetStream(ctx context.Context, username string) (*stream.Stream, error) {
	const q = `
SELECT username, id, token, amount, start_date, end_date, last_payout, active, created_at, updated_at
FROM payflow_streams WHERE username = ?`
	row := s.db.QueryRowContext(ctx, q, username)

	st, err := scanStream(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payflow.ErrStreamNotFound
		}
		return nil, err
	}
	return st, nil
}

func (s *Store) UpdateStream(ctx context.Context, st *stream.Stream) error {
	const q = `
UPDATE payflow_streams
SET token = ?, amount = ?, last_payout = ?, active = ?, updated_at = ?
WHERE username = ?`
	res, err := s.db.ExecContext(ctx, q,
		st.Token.String(), int64(st.Amount), toNano(st.LastPayout),
		st.Active, toNano(st.UpdatedAt), st.Username,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payflow.ErrStreamNotFound
	}
	return nil
}

func (s *Store) ListActiveStreams(ctx context.Context) ([]*stream.Stream, error) {
	const q = `
SELECT username, id, token, amount, start_date, end_date, last_payout, active, created_at, updated_at
FROM payflow_streams WHERE active ORDER BY username`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*stream.Stream, 0)
	for rows.Next() {
		st, err := scanStream(rows.Scan)
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
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		r.ID.String(), r.Username, r.Token.String(), r.To.String(), int64(r.Amount),
		string(r.Kind), toNano(r.ExecutedAt), toNano(r.CreatedAt), toNano(r.UpdatedAt),
	)
	return err
}

func (s *Store) ListReceipts(ctx context.Context, username string, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	q := `
SELECT id, username, token, recipient, amount, kind, executed_at, created_at, updated_at
FROM payflow_receipts
WHERE username = ?`
	args := []any{username}
	if opts.Kind != "" {
		q += ` AND kind = ?`
		args = append(args, string(opts.Kind))
	}
	q += ` ORDER BY executed_at`
	if opts.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*receipt.Receipt, 0)
	for rows.Next() {
		var r receipt.Receipt
		var token, to, kind string
		var amount, executed, created, updated int64
		if err := rows.Scan(&r.ID, &r.Username, &token, &to, &amount, &kind, &executed, &created, &updated); err != nil {
			return nil, err
		}
		r.Token = payflow.Token(token)
		r.To = payflow.Address(to)
		r.Amount = uint64(amount)
		r.Kind = receipt.Kind(kind)
		r.ExecutedAt = fromNano(executed)
		r.CreatedAt = fromNano(created)
		r.UpdatedAt = fromNano(updated)
		result = append(result, &r)
	}
	return result, rows.Err()
}

// ==================== Helpers ====================

type scanFunc func(dest ...any) error

func scanSchedule(scan scanFunc) (*schedule.Schedule, error) {
	var sch schedule.Schedule
	var token string
	var amount, next, created, updated int64
	if err := scan(&sch.Username, &sch.ID, &token, &amount, &next,
		&sch.OneTime, &sch.Active, &created, &updated); err != nil {
		return nil, err
	}
	sch.Token = payflow.Token(token)
	sch.Amount = uint64(amount)
	sch.NextPayout = fromNano(next)
	sch.CreatedAt = fromNano(created)
	sch.UpdatedAt = fromNano(updated)
	return &sch, nil
}

func scanStream(scan scanFunc) (*stream.Stream, error) {
	var st stream.Stream
	var token string
	var amount, start, end, last, created, updated int64
	if err := scan(&st.Username, &st.ID, &token, &amount, &start, &end, &last,
		&st.Active, &created, &updated); err != nil {
		return nil, err
	}
	st.Token = payflow.Token(token)
	st.Amount = uint64(amount)
	st.StartDate = fromNano(start)
	st.EndDate = fromNano(end)
	st.LastPayout = fromNano(last)
	st.CreatedAt = fromNano(created)
	st.UpdatedAt = fromNano(updated)
	return &st, nil
}

func toNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
