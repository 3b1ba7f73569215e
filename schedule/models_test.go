package schedule_test

import (
	"testing"
	"time"

	"github.com/xraph/payflow/schedule"
	"github.com/xraph/payflow/types"
)

var t0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestNewClassification(t *testing.T) {
	tests := []struct {
		name        string
		payoutDate  time.Time
		wantOneTime bool
		wantNext    time.Time
	}{
		{
			"future date makes one-time",
			t0.Add(72 * time.Hour),
			true,
			t0.Add(72 * time.Hour),
		},
		{
			"zero date makes recurring",
			time.Time{},
			false,
			t0.Add(schedule.DefaultInterval),
		},
		{
			"past date makes recurring",
			t0.Add(-time.Hour),
			false,
			t0.Add(schedule.DefaultInterval),
		},
		{
			"exactly now makes recurring",
			t0,
			false,
			t0.Add(schedule.DefaultInterval),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := schedule.New("alice", 100, types.Native, tt.payoutDate, t0, schedule.DefaultInterval)

			if s.OneTime != tt.wantOneTime {
				t.Errorf("OneTime = %v, want %v", s.OneTime, tt.wantOneTime)
			}
			if !s.NextPayout.Equal(tt.wantNext) {
				t.Errorf("NextPayout = %v, want %v", s.NextPayout, tt.wantNext)
			}
			if !s.Active {
				t.Error("new schedule should be active")
			}
		})
	}
}

func TestDue(t *testing.T) {
	s := schedule.New("alice", 100, types.Native, time.Time{}, t0, schedule.DefaultInterval)

	if s.Due(t0) {
		t.Error("recurring schedule should not be due at creation")
	}
	if s.Due(t0.Add(schedule.DefaultInterval - time.Second)) {
		t.Error("schedule should not be due before NextPayout")
	}
	if !s.Due(t0.Add(schedule.DefaultInterval)) {
		t.Error("schedule should be due exactly at NextPayout")
	}
	if !s.Due(t0.Add(schedule.DefaultInterval + 24*time.Hour)) {
		t.Error("schedule should be due after NextPayout")
	}

	s.Deactivate(t0)
	if s.Due(t0.Add(schedule.DefaultInterval)) {
		t.Error("inactive schedule should never be due")
	}
}

func TestAdvanceRecurring(t *testing.T) {
	s := schedule.New("alice", 100, types.Native, time.Time{}, t0, schedule.DefaultInterval)

	// Executed one day late: re-arm counts from execution, not from the
	// missed due date.
	execAt := t0.Add(schedule.DefaultInterval + 24*time.Hour)
	s.Advance(execAt, schedule.DefaultInterval)

	if !s.Active {
		t.Error("recurring schedule should stay active after advance")
	}
	want := execAt.Add(schedule.DefaultInterval)
	if !s.NextPayout.Equal(want) {
		t.Errorf("NextPayout = %v, want %v", s.NextPayout, want)
	}
}

func TestAdvanceOneTime(t *testing.T) {
	payout := t0.Add(48 * time.Hour)
	s := schedule.New("alice", 100, types.Native, payout, t0, schedule.DefaultInterval)

	s.Advance(payout, schedule.DefaultInterval)

	if s.Active {
		t.Error("one-time schedule should deactivate after advance")
	}
	if s.Due(payout.Add(time.Hour)) {
		t.Error("terminal schedule should never be due again")
	}
}

func TestDeactivate(t *testing.T) {
	s := schedule.New("alice", 100, types.Native, time.Time{}, t0, schedule.DefaultInterval)
	s.Deactivate(t0.Add(time.Hour))

	if s.Active {
		t.Error("schedule should be inactive")
	}
}
