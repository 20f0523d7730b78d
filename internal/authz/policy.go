package authz

import "github.com/vesta-dapp/vesta_ledger/internal/ledger"

// Policy decides which callers may issue new supply. Accounting
// invariants do not depend on it; it is the capability check layered on
// top of the engine.
type Policy interface {
	CanMint(caller ledger.Address) bool
}

// Minter permits a single designated authority address.
type Minter struct {
	authority ledger.Address
}

// NewMinter builds a policy allowing only the given authority to mint.
func NewMinter(authority ledger.Address) Minter {
	return Minter{authority: authority}
}

// CanMint reports whether the caller is the designated authority.
func (m Minter) CanMint(caller ledger.Address) bool {
	return !m.authority.IsZero() && caller == m.authority
}

// DenyAll disables minting entirely, turning the token into a
// fixed-supply deployment.
type DenyAll struct{}

// CanMint always refuses.
func (DenyAll) CanMint(ledger.Address) bool {
	return false
}
