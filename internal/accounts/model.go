package accounts

import (
	"time"

	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
)

// Account binds a ledger address to boundary-layer credentials. The
// engine itself knows nothing about registration; this exists so login
// can resolve a caller address for mutating calls.
type Account struct {
	ID        string
	Address   ledger.Address
	Label     string
	PINHash   []byte
	CreatedAt time.Time
}
