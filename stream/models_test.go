package stream_test

import (
	"testing"
	"time"

	"github.com/xraph/payflow/stream"
	"github.com/xraph/payflow/types"
)

var t0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	end := t0.Add(100 * time.Hour)
	s := stream.New("alice", 1000, types.Native, end, t0)

	if !s.Active {
		t.Error("new stream should be active")
	}
	if !s.StartDate.Equal(t0) {
		t.Errorf("StartDate = %v, want %v", s.StartDate, t0)
	}
	if !s.LastPayout.Equal(t0) {
		t.Errorf("LastPayout = %v, want %v", s.LastPayout, t0)
	}
	if !s.EndDate.Equal(end) {
		t.Errorf("EndDate = %v, want %v", s.EndDate, end)
	}
}

func TestAccrued(t *testing.T) {
	tests := []struct {
		name   string
		amount uint64
		total  time.Duration
		at     time.Duration
		want   uint64
	}{
		{"half elapsed", 1000, 100 * time.Hour, 50 * time.Hour, 500},
		{"quarter elapsed", 1000, 100 * time.Hour, 25 * time.Hour, 250},
		{"full duration", 1000, 100 * time.Hour, 100 * time.Hour, 1000},
		{"truncates down", 100, 3 * time.Hour, time.Hour, 33},
		{"tiny interval rounds to zero", 10, 100 * time.Hour, time.Nanosecond, 0},
		{"no time elapsed", 1000, 100 * time.Hour, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := stream.New("alice", tt.amount, types.Native, t0.Add(tt.total), t0)

			got, err := s.Accrued(t0.Add(tt.at))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Accrued = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAccruedAfterCheckpoint(t *testing.T) {
	s := stream.New("alice", 1000, types.Native, t0.Add(100*time.Hour), t0)

	s.Checkpoint(t0.Add(40 * time.Hour))

	// Only the increment since the checkpoint accrues.
	got, err := s.Accrued(t0.Add(60 * time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 200 {
		t.Errorf("Accrued = %d, want 200", got)
	}
}

func TestAccruedBeforeCheckpoint(t *testing.T) {
	s := stream.New("alice", 1000, types.Native, t0.Add(100*time.Hour), t0)
	s.Checkpoint(t0.Add(50 * time.Hour))

	got, err := s.Accrued(t0.Add(40 * time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("Accrued before checkpoint = %d, want 0", got)
	}
}

func TestEnded(t *testing.T) {
	end := t0.Add(24 * time.Hour)
	s := stream.New("alice", 1000, types.Native, end, t0)

	if s.Ended(t0) {
		t.Error("stream should not be ended at start")
	}
	if s.Ended(end) {
		t.Error("stream should not be ended exactly at end date")
	}
	if !s.Ended(end.Add(time.Nanosecond)) {
		t.Error("stream should be ended past end date")
	}
}

func TestDeactivate(t *testing.T) {
	s := stream.New("alice", 1000, types.Native, t0.Add(time.Hour), t0)
	s.Deactivate(t0.Add(time.Minute))

	if s.Active {
		t.Error("stream should be inactive")
	}
}
