package payflow_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/payflow"
	"github.com/xraph/payflow/receipt"
	"github.com/xraph/payflow/store/memory"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and run.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// The ledger collaborator performs the actual value transfers.
		myLedger := payflow.LedgerFunc(func(_ context.Context, token payflow.Token, to payflow.Address, amount uint64) error {
			log.Printf("transfer %d %s to %s\n", amount, token, to)
			return nil
		})

		eng := payflow.New(store,
			payflow.WithLogger(slog.Default()),
			payflow.WithLedger(myLedger),
		)

		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Claim a username: first come, first served.
		entry, err := eng.ClaimUsername(ctx, "alice", "0xA11CE")
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("claimed %s -> %s\n", entry.Username, entry.Address)

		now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		manager := payflow.Address("0xMGR")

		// A recurring schedule: zero payout date means every 30 days.
		if _, err := eng.CreateSchedule(ctx, manager, "alice", 100, payflow.Native, time.Time{}, now); err != nil {
			t.Fatal(err)
		}

		// A stream: 10_000 units paid linearly over ten days.
		if _, err := eng.CreateStream(ctx, manager, "alice", 10_000, payflow.Native, now.Add(240*time.Hour), now); err != nil {
			t.Fatal(err)
		}

		// Execution is passive: drive it with an explicit timestamp.
		rcpt, err := eng.ExecutePayment(ctx, manager, "alice", now.Add(30*24*time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if rcpt == nil || rcpt.Amount != 100 {
			t.Fatalf("unexpected receipt: %+v", rcpt)
		}

		rcpt, err = eng.ExecuteStream(ctx, manager, "alice", now.Add(24*time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if rcpt == nil || rcpt.Amount != 1000 {
			t.Fatalf("unexpected stream receipt: %+v", rcpt)
		}

		// Every transfer leaves an audit receipt.
		receipts, err := eng.Receipts(ctx, "alice", receipt.ListOpts{})
		if err != nil {
			t.Fatal(err)
		}
		if len(receipts) != 2 {
			t.Fatalf("expected 2 receipts, got %d", len(receipts))
		}
	})

	t.Run("ResolveExample", func(t *testing.T) {
		eng := payflow.New(memory.New(), payflow.WithLedger(payflow.LedgerFunc(
			func(context.Context, payflow.Token, payflow.Address, uint64) error { return nil },
		)))

		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		if _, err := eng.ClaimUsername(ctx, "bob", "0xB0B"); err != nil {
			t.Fatal(err)
		}

		// Resolve fails on unknown usernames; GetUserAddress is total.
		addr, err := eng.ResolveUsername(ctx, "bob")
		if err != nil {
			t.Fatal(err)
		}
		if addr != "0xB0B" {
			t.Fatalf("resolved %q", addr)
		}

		addr, err = eng.GetUserAddress(ctx, "nobody")
		if err != nil {
			t.Fatal(err)
		}
		if !addr.IsZero() {
			t.Fatalf("expected zero address, got %q", addr)
		}
	})
}
