package session

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"time"

	"github.com/tidewallet/tide/internal/chain"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// PendingKind tags the union of operations awaiting approval.
type PendingKind string

const (
	// PendingTransfer is a prepared value or token transfer.
	PendingTransfer PendingKind = "transfer"
	// PendingSwap is a prepared token swap. Swaps are held for approval
	// or rejection only; execution is not part of this core.
	PendingSwap PendingKind = "swap"
)

// TransferIntent is the transfer variant.
type TransferIntent struct {
	To     string
	Amount *big.Int // minor units
	Token  string   // symbol, empty for native
	Chain  chain.ID

	// Account is the sending account index.
	Account uint32
}

// SwapIntent is the swap variant.
type SwapIntent struct {
	FromToken   string
	ToToken     string
	Amount      *big.Int // minor units of FromToken
	SlippageBps int      // tolerance in basis points
}

// PendingTransaction is an operation awaiting a single approval or
// rejection. Once consumed it cannot be approved or rejected again.
type PendingTransaction struct {
	ID        string
	Kind      PendingKind
	CreatedAt time.Time

	// Exactly one of these is set, matching Kind.
	Transfer *TransferIntent
	Swap     *SwapIntent

	consumed bool
}

// newPendingID generates an opaque pending-transaction identifier.
func newPendingID() (string, error) {
	raw := make([]byte, 8)
	if _, err := rand.Read(raw); err != nil {
		return "", walleterr.Wrap(err, "generating pending id")
	}
	return hex.EncodeToString(raw), nil
}
