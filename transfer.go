package payflow

import (
	"context"

	"github.com/xraph/payflow/types"
)

// Ledger is the external value-transfer collaborator. Implementations
// move amount (in the token's smallest unit) to the destination address,
// distinguishing the native-asset sentinel from fungible tokens.
//
// A transfer either fully happens or fully fails; the engine treats any
// error as fatal to the whole execute call and commits no state on
// failure.
type Ledger interface {
	Transfer(ctx context.Context, token types.Token, to types.Address, amount uint64) error
}

// LedgerFunc adapts a function into a Ledger.
type LedgerFunc func(ctx context.Context, token types.Token, to types.Address, amount uint64) error

// Transfer implements Ledger.
func (f LedgerFunc) Transfer(ctx context.Context, token types.Token, to types.Address, amount uint64) error {
	return f(ctx, token, to, amount)
}
