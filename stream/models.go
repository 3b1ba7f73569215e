// Package stream holds the continuous linear-payment state machine.
//
// A stream pays out a total amount linearly over [StartDate, EndDate].
// Each execution transfers the increment accrued since the last checkpoint
// and moves the checkpoint forward. Accrual uses integer arithmetic with a
// 128-bit intermediate; division truncates, so rounding always favors the
// payer and tiny elapsed intervals can accrue zero.
package stream

import (
	"time"

	"github.com/xraph/payflow/id"
	"github.com/xraph/payflow/types"
)

// Stream is a continuously accruing payment for one username.
type Stream struct {
	types.Entity
	ID         id.StreamID   `json:"id"`
	Username   string        `json:"username"`
	Token      types.Token   `json:"token"`
	Amount     uint64        `json:"amount"`
	StartDate  time.Time     `json:"start_date"`
	EndDate    time.Time     `json:"end_date"`
	LastPayout time.Time     `json:"last_payout"`
	Active     bool          `json:"active"`
}

// New builds a stream of amount over [now, endDate]. The caller must have
// validated endDate > now; LastPayout starts at the stream start.
func New(username string, amount uint64, token types.Token, endDate, now time.Time) *Stream {
	return &Stream{
		Entity:     types.NewEntityAt(now),
		ID:         id.NewStreamID(),
		Username:   username,
		Token:      token,
		Amount:     amount,
		StartDate:  now,
		EndDate:    endDate,
		LastPayout: now,
		Active:     true,
	}
}

// Ended reports whether now is past the stream's end date.
func (s *Stream) Ended(now time.Time) bool {
	return now.After(s.EndDate)
}

// Accrued returns the payout owed at now: floor(Amount * elapsed / total)
// where elapsed is the time since the last checkpoint and total the full
// stream duration. Returns zero when no time has elapsed. The only error
// is overflow on pathological amount/duration combinations.
func (s *Stream) Accrued(now time.Time) (uint64, error) {
	elapsed := now.Sub(s.LastPayout)
	if elapsed <= 0 {
		return 0, nil
	}

	total := s.EndDate.Sub(s.StartDate)
	return types.MulDiv(s.Amount, uint64(elapsed), uint64(total))
}

// Checkpoint records a successful payout at now. Checkpoints only move on
// a non-zero transfer — a zero accrual leaves LastPayout untouched so the
// accrual is not silently lost.
func (s *Stream) Checkpoint(now time.Time) {
	s.LastPayout = now
	s.TouchAt(now)
}

// Deactivate stops the stream, either administratively or because the end
// date passed.
func (s *Stream) Deactivate(now time.Time) {
	s.Active = false
	s.TouchAt(now)
}
