// Package receipt records every value transfer the engine instructs.
//
// Receipts are append-only: one row per successful ledger transfer,
// written in the same engine step that commits the schedule or stream
// mutation. They are the audit trail a keeper or reconciliation job
// replays.
package receipt

import (
	"context"
	"time"

	"github.com/xraph/payflow/id"
	"github.com/xraph/payflow/types"
)

// Kind distinguishes which payment record produced a receipt.
type Kind string

const (
	// KindSchedule marks a scheduled payout.
	KindSchedule Kind = "schedule"
	// KindStream marks a stream accrual payout.
	KindStream Kind = "stream"
)

// Receipt is the durable record of one executed transfer.
type Receipt struct {
	types.Entity
	ID         id.TransferID `json:"id"`
	Username   string        `json:"username"`
	Token      types.Token   `json:"token"`
	To         types.Address `json:"to"`
	Amount     uint64        `json:"amount"`
	Kind       Kind          `json:"kind"`
	ExecutedAt time.Time     `json:"executed_at"`
}

// New builds a receipt for a transfer executed at now.
func New(username string, token types.Token, to types.Address, amount uint64, kind Kind, now time.Time) *Receipt {
	return &Receipt{
		Entity:     types.NewEntityAt(now),
		ID:         id.NewTransferID(),
		Username:   username,
		Token:      token,
		To:         to,
		Amount:     amount,
		Kind:       kind,
		ExecutedAt: now,
	}
}

// ListOpts filters receipt listings.
type ListOpts struct {
	Kind   Kind
	Limit  int
	Offset int
}

// Store persists receipts.
type Store interface {
	Create(ctx context.Context, r *Receipt) error
	List(ctx context.Context, username string, opts ListOpts) ([]*Receipt, error)
}
