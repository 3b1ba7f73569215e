package keeper_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/payflow/keeper"
	"github.com/xraph/payflow/receipt"
	"github.com/xraph/payflow/schedule"
	"github.com/xraph/payflow/stream"
	"github.com/xraph/payflow/types"
)

var t0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// fakeEngine records execution calls against canned listings.
type fakeEngine struct {
	mu sync.Mutex

	due    []*schedule.Schedule
	active []*stream.Stream

	executedPayments []string
	executedStreams  []string
	failFor          string
}

func (f *fakeEngine) DueSchedules(_ context.Context, _ time.Time) ([]*schedule.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.due, nil
}

func (f *fakeEngine) ActiveStreams(_ context.Context) ([]*stream.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, nil
}

func (f *fakeEngine) ExecutePayment(_ context.Context, _ types.Address, username string, _ time.Time) (*receipt.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if username == f.failFor {
		return nil, errors.New("transfer rejected")
	}
	f.executedPayments = append(f.executedPayments, username)
	return nil, nil
}

func (f *fakeEngine) ExecuteStream(_ context.Context, _ types.Address, username string, _ time.Time) (*receipt.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if username == f.failFor {
		return nil, errors.New("transfer rejected")
	}
	f.executedStreams = append(f.executedStreams, username)
	return nil, nil
}

func TestTickExecutesDueAndActive(t *testing.T) {
	eng := &fakeEngine{
		due: []*schedule.Schedule{
			schedule.New("alice", 100, types.Native, time.Time{}, t0, schedule.DefaultInterval),
			schedule.New("bob", 200, types.Native, time.Time{}, t0, schedule.DefaultInterval),
		},
		active: []*stream.Stream{
			stream.New("carol", 1000, types.Native, t0.Add(time.Hour), t0),
		},
	}

	k := keeper.New(eng, "0xKEEPER", keeper.WithClock(func() time.Time { return t0 }))
	k.Tick(context.Background())

	if len(eng.executedPayments) != 2 {
		t.Errorf("executed payments = %v", eng.executedPayments)
	}
	if len(eng.executedStreams) != 1 || eng.executedStreams[0] != "carol" {
		t.Errorf("executed streams = %v", eng.executedStreams)
	}
}

func TestTickSkipsFailures(t *testing.T) {
	eng := &fakeEngine{
		due: []*schedule.Schedule{
			schedule.New("alice", 100, types.Native, time.Time{}, t0, schedule.DefaultInterval),
			schedule.New("bob", 200, types.Native, time.Time{}, t0, schedule.DefaultInterval),
		},
		failFor: "alice",
	}

	k := keeper.New(eng, "0xKEEPER", keeper.WithClock(func() time.Time { return t0 }))
	k.Tick(context.Background())

	// The failing username is logged and skipped; the rest still run.
	if len(eng.executedPayments) != 1 || eng.executedPayments[0] != "bob" {
		t.Errorf("executed payments = %v", eng.executedPayments)
	}
}

func TestStartStop(t *testing.T) {
	eng := &fakeEngine{
		due: []*schedule.Schedule{
			schedule.New("alice", 100, types.Native, time.Time{}, t0, schedule.DefaultInterval),
		},
	}

	k := keeper.New(eng, "0xKEEPER",
		keeper.WithInterval(5*time.Millisecond),
		keeper.WithClock(func() time.Time { return t0 }),
	)

	k.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for {
		eng.mu.Lock()
		n := len(eng.executedPayments)
		eng.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("keeper never ticked")
		case <-time.After(time.Millisecond):
		}
	}

	k.Stop()
}
