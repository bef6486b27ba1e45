// Package chain provides blockchain identifiers and common utilities
// shared by the chain clients and the session layer.
package chain

// ID represents a supported blockchain.
type ID string

// Supported blockchain identifiers.
const (
	ETH ID = "eth"
	BTC ID = "btc"
)

// BIP44 coin types for derivation paths.
const (
	CoinTypeETH uint32 = 60
	CoinTypeBTC uint32 = 0
)

// Native asset decimals per chain.
const (
	DecimalsETH = 18
	DecimalsBTC = 8
)

// CoinType returns the BIP44 coin type for a chain.
func (id ID) CoinType() uint32 {
	switch id {
	case ETH:
		return CoinTypeETH
	case BTC:
		return CoinTypeBTC
	default:
		return 0
	}
}

// Decimals returns the native asset decimals for a chain.
func (id ID) Decimals() int {
	switch id {
	case ETH:
		return DecimalsETH
	case BTC:
		return DecimalsBTC
	default:
		return 0
	}
}

// String returns the chain identifier string.
func (id ID) String() string {
	return string(id)
}

// IsValid returns true if the chain ID is a known chain.
func (id ID) IsValid() bool {
	switch id {
	case ETH, BTC:
		return true
	default:
		return false
	}
}

// All returns every supported chain, in derivation order.
func All() []ID {
	return []ID{ETH, BTC}
}
