// Package directory holds the username-to-address binding table.
//
// A username is an immutable, arbitrary non-empty string chosen by its
// claimant. It is the sole key for directory, schedule and stream lookups.
// Uniqueness is first-claim-wins; the binding's address may be redirected
// by the current owner at any time, including to the zero address, which
// retires the username for payment purposes without freeing the slot.
package directory

import (
	"github.com/xraph/payflow/id"
	"github.com/xraph/payflow/types"
)

// Entry binds a username to its owning address. The owner is both the
// payout recipient and the only party allowed to redirect the binding.
type Entry struct {
	types.Entity
	ID       id.EntryID    `json:"id"`
	Username string        `json:"username"`
	Address  types.Address `json:"address"`
}

// New creates a directory entry binding username to owner.
func New(username string, owner types.Address) *Entry {
	return &Entry{
		Entity:   types.NewEntity(),
		ID:       id.NewEntryID(),
		Username: username,
		Address:  owner,
	}
}

// OwnedBy reports whether caller is the current owner of the entry.
func (e *Entry) OwnedBy(caller types.Address) bool {
	return !e.Address.IsZero() && e.Address.Equal(caller)
}

// Redirect overwrites the bound address. A redirect is a total overwrite,
// never a merge, and redirecting to the current address is legal.
func (e *Entry) Redirect(addr types.Address) {
	e.Address = addr
	e.Touch()
}

// Payable reports whether the entry currently resolves to a payable
// destination.
func (e *Entry) Payable() bool {
	return !e.Address.IsZero()
}
