package hdkey

import (
	"fmt"

	"github.com/tyler-smith/go-bip32"

	"github.com/tidewallet/tide/internal/chain"
)

// hardened marks a path component as hardened.
func hardened(n uint32) uint32 { return bip32.FirstHardenedChild + n }

// PathStrategy is one candidate derivation layout. Different wallet
// software historically produced addresses at non-standard paths, and a
// restored seed must be able to reach funds wherever the original wallet
// put them. Each strategy has a stable name so logs can record which
// layout a seed actually used.
type PathStrategy struct {
	// Name identifies the strategy in logs and mismatch reports.
	Name string

	// Steps returns the child-key steps below the master key.
	Steps func(chainID chain.ID, index uint32) []uint32

	// Path returns the human-readable derivation path.
	Path func(chainID chain.ID, index uint32) string
}

// pathStrategies is the ordered candidate list. The canonical BIP44
// layout comes first; the rest are layouts observed in the wild, tried
// in fixed order so the search is deterministic.
var pathStrategies = []PathStrategy{
	{
		Name: "bip44",
		Steps: func(c chain.ID, i uint32) []uint32 {
			return []uint32{hardened(44), hardened(c.CoinType()), hardened(0), 0, i}
		},
		Path: func(c chain.ID, i uint32) string {
			return fmt.Sprintf("m/44'/%d'/0'/0/%d", c.CoinType(), i)
		},
	},
	{
		Name: "hardened-account",
		Steps: func(c chain.ID, i uint32) []uint32 {
			return []uint32{hardened(44), hardened(c.CoinType()), hardened(i), 0, 0}
		},
		Path: func(c chain.ID, i uint32) string {
			return fmt.Sprintf("m/44'/%d'/%d'/0/0", c.CoinType(), i)
		},
	},
	{
		Name: "hardened-account-short",
		Steps: func(c chain.ID, i uint32) []uint32 {
			return []uint32{hardened(44), hardened(c.CoinType()), hardened(i), 0}
		},
		Path: func(c chain.ID, i uint32) string {
			return fmt.Sprintf("m/44'/%d'/%d'/0", c.CoinType(), i)
		},
	},
	{
		Name: "hardened-account-only",
		Steps: func(c chain.ID, i uint32) []uint32 {
			return []uint32{hardened(44), hardened(c.CoinType()), hardened(i)}
		},
		Path: func(c chain.ID, i uint32) string {
			return fmt.Sprintf("m/44'/%d'/%d'", c.CoinType(), i)
		},
	},
	{
		Name: "no-change",
		Steps: func(c chain.ID, i uint32) []uint32 {
			return []uint32{hardened(44), hardened(c.CoinType()), hardened(0), i}
		},
		Path: func(c chain.ID, i uint32) string {
			return fmt.Sprintf("m/44'/%d'/0'/%d", c.CoinType(), i)
		},
	},
	{
		Name: "account-level",
		Steps: func(c chain.ID, i uint32) []uint32 {
			return []uint32{hardened(44), hardened(c.CoinType()), hardened(0)}
		},
		Path: func(c chain.ID, i uint32) string {
			return fmt.Sprintf("m/44'/%d'/0'", c.CoinType())
		},
	},
	{
		Name: "master",
		Steps: func(chain.ID, uint32) []uint32 {
			return nil
		},
		Path: func(chain.ID, uint32) string {
			return "m"
		},
	},
}

// canonicalStrategy returns the standard BIP44 layout.
func canonicalStrategy(chain.ID) PathStrategy {
	return pathStrategies[0]
}

// strategiesForChain returns the ordered candidate list for a chain.
func strategiesForChain(chain.ID) []PathStrategy {
	return pathStrategies
}
