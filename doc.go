// Package payflow provides a composable payment-obligation engine for Go
// applications.
//
// Payflow is designed as a library, not a service. Import it directly
// into your Go application and drive it from your own triggers. It
// provides:
//
//   - A username directory mapping human-readable names to payable
//     addresses, self-managed by each username's owner
//   - One-time and recurring fixed-amount payment schedules
//   - Continuous linear payment streams with exact pro-rata accrual
//   - Idempotent, retry-safe execution: early or repeated execution
//     attempts never double-pay and never corrupt state
//   - Pluggable storage (memory, PostgreSQL, SQLite, MongoDB)
//   - Lifecycle hooks via the plugin registry
//
// # Quick Start
//
// Create an engine with your preferred store and a ledger collaborator:
//
//	import (
//	    "github.com/xraph/payflow"
//	    "github.com/xraph/payflow/store/memory"
//	)
//
//	eng := payflow.New(memory.New(),
//	    payflow.WithLedger(myLedger),
//	    payflow.WithAuthorizer(myAuthorizer),
//	)
//
//	ctx := context.Background()
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Usernames are claimed first-come-first-served and bind a payout
// address that only the owner may redirect:
//
//	entry, err := eng.ClaimUsername(ctx, "alice", "0xA11CE")
//
// Schedules pay a fixed amount either once at a future date or every 30
// days. The payout-date parameter selects the mode: a future date means
// one-time, the zero time means recurring:
//
//	sched, err := eng.CreateSchedule(ctx, manager, "alice", 100, payflow.Native, time.Time{}, now)
//
// Streams pay a total amount linearly over a period, in increments
// proportional to elapsed time:
//
//	strm, err := eng.CreateStream(ctx, manager, "alice", 10_000, payflow.Native, endDate, now)
//
// Execution is passive. Nothing pays out until some authorized caller —
// a cron job, a keeper bot, or a human — invokes it with an explicit
// timestamp:
//
//	rcpt, err := eng.ExecutePayment(ctx, executor, "alice", time.Now())
//
// The keeper package provides a ready-made ticker loop that drives
// execution for every due schedule and active stream.
package payflow
