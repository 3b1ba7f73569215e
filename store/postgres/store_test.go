package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/xraph/payflow"
	"github.com/xraph/payflow/directory"
	"github.com/xraph/payflow/receipt"
	"github.com/xraph/payflow/schedule"
	"github.com/xraph/payflow/stream"
	"github.com/xraph/payflow/types"
)

var t0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewWithQuerier(mock), mock
}

func TestCreateEntry_OK_and_UniqueViolation(t *testing.T) {
	s, mock := newStore(t)
	defer mock.Close()
	ctx := context.Background()
	e := directory.New("alice", "0xA11CE")

	mock.ExpectExec(`INSERT INTO payflow_directory`).
		WithArgs(e.Username, e.ID, e.Address.String(), e.CreatedAt, e.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.CreateEntry(ctx, e))

	mock.ExpectExec(`INSERT INTO payflow_directory`).
		WithArgs(e.Username, e.ID, e.Address.String(), e.CreatedAt, e.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, s.CreateEntry(ctx, e), payflow.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEntry(t *testing.T) {
	s, mock := newStore(t)
	defer mock.Close()
	ctx := context.Background()
	e := directory.New("alice", "0xA11CE")

	cols := []string{"username", "id", "address", "created_at", "updated_at"}
	mock.ExpectQuery(`SELECT username, id, address, created_at, updated_at\s+FROM payflow_directory WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("alice", e.ID.String(), "0xA11CE", t0, t0))

	got, err := s.GetEntry(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, types.Address("0xA11CE"), got.Address)
	require.Equal(t, e.ID.String(), got.ID.String())

	mock.ExpectQuery(`FROM payflow_directory WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	_, err = s.GetEntry(ctx, "ghost")
	require.ErrorIs(t, err, payflow.ErrUserNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEntry_NotFound(t *testing.T) {
	s, mock := newStore(t)
	defer mock.Close()
	e := directory.New("ghost", "0xG05T")

	mock.ExpectExec(`UPDATE payflow_directory`).
		WithArgs(e.Username, e.Address.String(), e.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, s.UpdateEntry(context.Background(), e), payflow.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPutSchedule_Upsert(t *testing.T) {
	s, mock := newStore(t)
	defer mock.Close()
	sch := schedule.New("alice", 100, types.Native, time.Time{}, t0, schedule.DefaultInterval)

	mock.ExpectExec(`INSERT INTO payflow_schedules .+ ON CONFLICT \(username\) DO UPDATE`).
		WithArgs(sch.Username, sch.ID, sch.Token.String(), int64(sch.Amount),
			sch.NextPayout, sch.OneTime, sch.Active, sch.CreatedAt, sch.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.PutSchedule(context.Background(), sch))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSchedule_NotFound(t *testing.T) {
	s, mock := newStore(t)
	defer mock.Close()

	mock.ExpectQuery(`FROM payflow_schedules WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSchedule(context.Background(), "ghost")
	require.ErrorIs(t, err, payflow.ErrScheduleNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDueSchedules(t *testing.T) {
	s, mock := newStore(t)
	defer mock.Close()
	sch := schedule.New("alice", 100, types.Native, time.Time{}, t0, schedule.DefaultInterval)
	now := t0.Add(31 * 24 * time.Hour)

	cols := []string{"username", "id", "token", "amount", "next_payout", "one_time", "active", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM payflow_schedules\s+WHERE active AND next_payout <= \$1`).
		WithArgs(now).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("alice", sch.ID.String(), "native", int64(100), sch.NextPayout, false, true, t0, t0))

	got, err := s.ListDueSchedules(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "alice", got[0].Username)
	require.Equal(t, uint64(100), got[0].Amount)
	require.True(t, got[0].Active)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStream_NotFound(t *testing.T) {
	s, mock := newStore(t)
	defer mock.Close()
	st := stream.New("ghost", 1000, types.Native, t0.Add(time.Hour), t0)

	mock.ExpectExec(`UPDATE payflow_streams`).
		WithArgs(st.Username, st.Token.String(), int64(st.Amount),
			st.LastPayout, st.Active, st.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, s.UpdateStream(context.Background(), st), payflow.ErrStreamNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAndListReceipts(t *testing.T) {
	s, mock := newStore(t)
	defer mock.Close()
	ctx := context.Background()
	r := receipt.New("alice", types.Native, "0xA11CE", 100, receipt.KindSchedule, t0)

	mock.ExpectExec(`INSERT INTO payflow_receipts`).
		WithArgs(r.ID, r.Username, r.Token.String(), r.To.String(), int64(r.Amount),
			string(r.Kind), r.ExecutedAt, r.CreatedAt, r.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.CreateReceipt(ctx, r))

	cols := []string{"id", "username", "token", "recipient", "amount", "kind", "executed_at", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM payflow_receipts\s+WHERE username = \$1`).
		WithArgs("alice", "schedule", 10, 0).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(r.ID.String(), "alice", "native", "0xA11CE", int64(100), "schedule", t0, t0, t0))

	got, err := s.ListReceipts(ctx, "alice", receipt.ListOpts{Kind: receipt.KindSchedule, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, uint64(100), got[0].Amount)
	require.Equal(t, receipt.KindSchedule, got[0].Kind)

	require.NoError(t, mock.ExpectationsWereMet())
}
