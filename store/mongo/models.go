package mongo

import (
	"time"

	"github.com/xraph/payflow"
	"github.com/xraph/payflow/directory"
	"github.com/xraph/payflow/id"
	"github.com/xraph/payflow/receipt"
	"github.com/xraph/payflow/schedule"
	"github.com/xraph/payflow/stream"
)

// Storage models use the username as _id for the keyed collections so
// uniqueness is enforced by the primary index.

type entryModel struct {
	Username  string    `bson:"_id"`
	ID        string    `bson:"id"`
	Address   string    `bson:"address"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toEntryModel(e *directory.Entry) *entryModel {
	return &entryModel{
		Username:  e.Username,
		ID:        e.ID.String(),
		Address:   e.Address.String(),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func fromEntryModel(m *entryModel) (*directory.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	e := &directory.Entry{
		ID:       entryID,
		Username: m.Username,
		Address:  payflow.Address(m.Address),
	}
	e.CreatedAt = m.CreatedAt
	e.UpdatedAt = m.UpdatedAt
	return e, nil
}

type scheduleModel struct {
	Username   string    `bson:"_id"`
	ID         string    `bson:"id"`
	Token      string    `bson:"token"`
	Amount     int64     `bson:"amount"`
	NextPayout time.Time `bson:"next_payout"`
	OneTime    bool      `bson:"one_time"`
	Active     bool      `bson:"active"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func toScheduleModel(s *schedule.Schedule) *scheduleModel {
	return &scheduleModel{
		Username:   s.Username,
		ID:         s.ID.String(),
		Token:      s.Token.String(),
		Amount:     int64(s.Amount),
		NextPayout: s.NextPayout,
		OneTime:    s.OneTime,
		Active:     s.Active,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func fromScheduleModel(m *scheduleModel) (*schedule.Schedule, error) {
	schID, err := id.ParseScheduleID(m.ID)
	if err != nil {
		return nil, err
	}
	s := &schedule.Schedule{
		ID:         schID,
		Username:   m.Username,
		Token:      payflow.Token(m.Token),
		Amount:     uint64(m.Amount),
		NextPayout: m.NextPayout,
		OneTime:    m.OneTime,
		Active:     m.Active,
	}
	s.CreatedAt = m.CreatedAt
	s.UpdatedAt = m.UpdatedAt
	return s, nil
}

type streamModel struct {
	Username   string    `bson:"_id"`
	ID         string    `bson:"id"`
	Token      string    `bson:"token"`
	Amount     int64     `bson:"amount"`
	StartDate  time.Time `bson:"start_date"`
	EndDate    time.Time `bson:"end_date"`
	LastPayout time.Time `bson:"last_payout"`
	Active     bool      `bson:"active"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func toStreamModel(s *stream.Stream) *streamModel {
	return &streamModel{
		Username:   s.Username,
		ID:         s.ID.String(),
		Token:      s.Token.String(),
		Amount:     int64(s.Amount),
		StartDate:  s.StartDate,
		EndDate:    s.EndDate,
		LastPayout: s.LastPayout,
		Active:     s.Active,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func fromStreamModel(m *streamModel) (*stream.Stream, error) {
	strID, err := id.ParseStreamID(m.ID)
	if err != nil {
		return nil, err
	}
	s := &stream.Stream{
		ID:         strID,
		Username:   m.Username,
		Token:      payflow.Token(m.Token),
		Amount:     uint64(m.Amount),
		StartDate:  m.StartDate,
		EndDate:    m.EndDate,
		LastPayout: m.LastPayout,
		Active:     m.Active,
	}
	s.CreatedAt = m.CreatedAt
	s.UpdatedAt = m.UpdatedAt
	return s, nil
}

type receiptModel struct {
	ID         string    `bson:"_id"`
	Username   string    `bson:"username"`
	Token      string    `bson:"token"`
	Recipient  string    `bson:"recipient"`
	Amount     int64     `bson:"amount"`
	Kind       string    `bson:"kind"`
	ExecutedAt time.Time `bson:"executed_at"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func toReceiptModel(r *receipt.Receipt) *receiptModel {
	return &receiptModel{
		ID:         r.ID.String(),
		Username:   r.Username,
		Token:      r.Token.String(),
		Recipient:  r.To.String(),
		Amount:     int64(r.Amount),
		Kind:       string(r.Kind),
		ExecutedAt: r.ExecutedAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func fromReceiptModel(m *receiptModel) (*receipt.Receipt, error) {
	rcptID, err := id.ParseTransferID(m.ID)
	if err != nil {
		return nil, err
	}
	r := &receipt.Receipt{
		ID:         rcptID,
		Username:   m.Username,
		Token:      payflow.Token(m.Token),
		To:         payflow.Address(m.Recipient),
		Amount:     uint64(m.Amount),
		Kind:       receipt.Kind(m.Kind),
		ExecutedAt: m.ExecutedAt,
	}
	r.CreatedAt = m.CreatedAt
	r.UpdatedAt = m.UpdatedAt
	return r, nil
}
