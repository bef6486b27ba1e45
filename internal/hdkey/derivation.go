package hdkey

import (
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"

	"github.com/tidewallet/tide/internal/chain"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// Account represents a derived blockchain account.
type Account struct {
	// Chain is the blockchain this account belongs to.
	Chain chain.ID `json:"chain"`

	// Index is the account index within the derivation path.
	Index uint32 `json:"index"`

	// Path is the derivation path used.
	Path string `json:"path"`

	// Address is the chain-formatted address string.
	Address string `json:"address"`

	// PublicKey is the compressed public key in hex format.
	PublicKey string `json:"public_key"`
}

// DeriveAccount derives the account for the given chain and index from a
// BIP39 seed, using the canonical BIP44 path. Same seed, chain, and index
// always yield the same address.
func DeriveAccount(seed []byte, chainID chain.ID, index uint32) (*Account, error) {
	if !chainID.IsValid() {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "unsupported chain %q", chainID)
	}

	strategy := canonicalStrategy(chainID)
	key, err := deriveKey(seed, strategy.Steps(chainID, index))
	if err != nil {
		return nil, err
	}

	address, err := addressForChain(key, chainID)
	if err != nil {
		return nil, err
	}

	return &Account{
		Chain:     chainID,
		Index:     index,
		Path:      strategy.Path(chainID, index),
		Address:   address,
		PublicKey: hex.EncodeToString(key.PublicKey().Key),
	}, nil
}

// DerivePrivateKey derives the private key for signing at the canonical
// path. The returned 32-byte key must be zeroed by the caller after use.
func DerivePrivateKey(seed []byte, chainID chain.ID, index uint32) ([]byte, error) {
	key, err := deriveKey(seed, canonicalStrategy(chainID).Steps(chainID, index))
	if err != nil {
		return nil, err
	}
	return copyKeyBytes(key)
}

// MatchResult is the outcome of a fallback path search.
type MatchResult struct {
	// PrivateKey is the 32-byte key behind the matched address.
	// It must be zeroed by the caller after use.
	PrivateKey []byte

	// Strategy is the name of the derivation strategy that reproduced
	// the expected address. Callers should log which one won: "first
	// path that happens to work" must stay observable, not become
	// undocumented behavior.
	Strategy string

	// Path is the concrete derivation path used.
	Path string
}

// DeriveMatchingKey finds the private key whose address equals expected.
// The canonical path is tried first; on mismatch the ordered candidate
// strategies follow. Signing must use the exact key behind the address the
// user was shown — a silent mismatch would sign with the wrong key — so if
// no candidate matches, the error carries every candidate address tried.
func DeriveMatchingKey(seed []byte, chainID chain.ID, index uint32, expected string) (*MatchResult, error) {
	if expected == "" {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "expected address is empty")
	}

	candidates := make(map[string]string, len(pathStrategies))

	for _, strategy := range strategiesForChain(chainID) {
		key, err := deriveKey(seed, strategy.Steps(chainID, index))
		if err != nil {
			// A strategy that cannot derive (e.g. hardened child edge
			// case) is skipped, not fatal; later candidates may match.
			candidates[strategy.Name] = "derivation failed: " + err.Error()
			continue
		}

		address, err := addressForChain(key, chainID)
		if err != nil {
			candidates[strategy.Name] = "address failed: " + err.Error()
			continue
		}

		if strings.EqualFold(address, expected) {
			priv, err := copyKeyBytes(key)
			if err != nil {
				return nil, err
			}
			return &MatchResult{
				PrivateKey: priv,
				Strategy:   strategy.Name,
				Path:       strategy.Path(chainID, index),
			}, nil
		}

		candidates[strategy.Name] = address
	}

	details := map[string]string{"expected": expected}
	for name, addr := range candidates {
		details["candidate:"+name] = addr
	}
	return nil, walleterr.WithDetails(walleterr.ErrDerivationMismatch, details)
}

// deriveKey walks the child-key steps from the master key.
func deriveKey(seed []byte, steps []uint32) (*bip32.Key, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("creating master key: %w", err)
	}

	for _, step := range steps {
		key, err = key.NewChildKey(step)
		if err != nil {
			return nil, fmt.Errorf("deriving child key: %w", err)
		}
	}

	return key, nil
}

// addressForChain formats the address for the chain from a derived key.
func addressForChain(key *bip32.Key, chainID chain.ID) (string, error) {
	switch chainID {
	case chain.ETH:
		return ethAddress(key)
	case chain.BTC:
		return btcAddress(key)
	default:
		return "", walleterr.Wrap(walleterr.ErrValidation, "unsupported chain %q", chainID)
	}
}

// ethAddress derives the EIP-55 checksummed Ethereum address.
func ethAddress(key *bip32.Key) (string, error) {
	priv, err := ethcrypto.ToECDSA(key.Key)
	if err != nil {
		return "", fmt.Errorf("parsing private key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(priv.PublicKey).Hex(), nil
}

// copyKeyBytes returns an owned copy of the 32-byte private key.
func copyKeyBytes(key *bip32.Key) ([]byte, error) {
	if len(key.Key) != 32 {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "unexpected private key length %d", len(key.Key))
	}
	priv := make([]byte, 32)
	copy(priv, key.Key)
	return priv, nil
}

// ZeroBytes zeros out a byte slice holding key material.
func ZeroBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
