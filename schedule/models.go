// Package schedule holds the scheduled-payment state machine.
//
// A schedule is either one-time (exactly one payout, then terminal) or
// recurring (re-armed a fixed interval after each execution). At most one
// schedule exists per username at a time; schedules are deactivated, never
// deleted.
package schedule

import (
	"time"

	"github.com/xraph/payflow/id"
	"github.com/xraph/payflow/types"
)

// DefaultInterval is the re-arm period for recurring schedules.
const DefaultInterval = 30 * 24 * time.Hour

// Schedule is a fixed-amount payment series for one username.
type Schedule struct {
	types.Entity
	ID         id.ScheduleID `json:"id"`
	Username   string        `json:"username"`
	Token      types.Token   `json:"token"`
	Amount     uint64        `json:"amount"`
	NextPayout time.Time     `json:"next_payout"`
	OneTime    bool          `json:"one_time"`
	Active     bool          `json:"active"`
}

// New builds a schedule for username, classifying oneTimePayoutDate:
// a date strictly after now makes a one-time schedule due at that date;
// any other value (zero, past, or exactly now) makes a recurring schedule
// first due at now+interval. Overloading the date parameter this way is
// deliberate API compression carried over from the source contract —
// callers signal "recurring" by passing the zero time.
func New(username string, amount uint64, token types.Token, oneTimePayoutDate, now time.Time, interval time.Duration) *Schedule {
	s := &Schedule{
		Entity:   types.NewEntityAt(now),
		ID:       id.NewScheduleID(),
		Username: username,
		Token:    token,
		Amount:   amount,
		Active:   true,
	}

	if oneTimePayoutDate.After(now) {
		s.OneTime = true
		s.NextPayout = oneTimePayoutDate
	} else {
		s.NextPayout = now.Add(interval)
	}

	return s
}

// Due reports whether the schedule should pay out at now. An inactive or
// not-yet-due schedule is simply not due — early execution is a no-op for
// callers, never an error.
func (s *Schedule) Due(now time.Time) bool {
	return s.Active && !s.NextPayout.After(now)
}

// Advance applies the post-payout transition: one-time schedules become
// terminal, recurring schedules re-arm a fixed interval from now. The
// re-arm is from the execution moment, not the missed due date, so late
// execution never compounds missed periods. That is the chosen policy,
// not an omission.
func (s *Schedule) Advance(now time.Time, interval time.Duration) {
	if s.OneTime {
		s.Active = false
	} else {
		s.NextPayout = now.Add(interval)
	}
	s.TouchAt(now)
}

// Deactivate administratively stops the schedule.
func (s *Schedule) Deactivate(now time.Time) {
	s.Active = false
	s.TouchAt(now)
}
