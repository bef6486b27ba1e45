// Package eth implements Ethereum transaction building, EIP-155 signing,
// and broadcast on top of the JSON-RPC client.
package eth

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// IsValidAddress reports whether the address has valid Ethereum format:
// 0x prefix followed by 40 hex characters. Checksum is not verified.
func IsValidAddress(address string) bool {
	if len(address) != 42 || !strings.HasPrefix(address, "0x") {
		return false
	}
	for _, c := range address[2:] {
		if !isHexChar(c) {
			return false
		}
	}
	return true
}

// ToChecksumAddress converts an address to EIP-55 checksum format.
// Invalid input is returned unchanged.
func ToChecksumAddress(address string) string {
	if !IsValidAddress(address) {
		return address
	}

	addr := strings.ToLower(address[2:])

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(addr))
	hash := hex.EncodeToString(hasher.Sum(nil))

	result := make([]byte, 42)
	result[0] = '0'
	result[1] = 'x'

	for i := 0; i < 40; i++ {
		c := addr[i]
		if hash[i] >= '8' && c >= 'a' && c <= 'f' {
			result[i+2] = c - 32
		} else {
			result[i+2] = c
		}
	}

	return string(result)
}

// ValidateChecksumAddress checks format and EIP-55 checksum. All-lowercase
// and all-uppercase addresses carry no checksum and pass; mixed case must
// match the checksum exactly.
func ValidateChecksumAddress(address string) error {
	if !IsValidAddress(address) {
		return walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{
			"address": address,
		})
	}

	addrPart := address[2:]
	if addrPart == strings.ToLower(addrPart) || addrPart == strings.ToUpper(addrPart) {
		return nil
	}

	if expected := ToChecksumAddress(address); address != expected {
		return walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{
			"reason":   "checksum mismatch",
			"expected": expected,
			"actual":   address,
		})
	}

	return nil
}

// NormalizeAddress validates an address and returns it in checksum format.
func NormalizeAddress(address string) (string, error) {
	if err := ValidateChecksumAddress(address); err != nil {
		return "", err
	}
	return ToChecksumAddress(address), nil
}

func isHexChar(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
