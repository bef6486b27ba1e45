package hdkey

import (
	"crypto/sha256"

	"github.com/tyler-smith/go-bip32"

	// RIPEMD160 is deprecated for new designs but mandatory for Bitcoin
	// P2PKH addresses: Hash160 = RIPEMD160(SHA256(pubkey)).
	//nolint:gosec,staticcheck // G507,SA1019: required by the Bitcoin protocol
	"golang.org/x/crypto/ripemd160"
)

// p2pkhVersion is the mainnet version byte for pay-to-pubkey-hash.
const p2pkhVersion = 0x00

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// btcAddress derives the legacy P2PKH address from the compressed
// public key of a derived key.
func btcAddress(key *bip32.Key) (string, error) {
	return base58CheckEncode(p2pkhVersion, hash160(key.PublicKey().Key)), nil
}

// hash160 computes RIPEMD160(SHA256(data)).
//
//nolint:gosec // G406: RIPEMD160 required by the Bitcoin address format
func hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	ripemd := ripemd160.New()
	ripemd.Write(sum[:])
	return ripemd.Sum(nil)
}

// doubleSHA256 computes SHA256(SHA256(data)).
func doubleSHA256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// base58CheckEncode prepends the version byte and appends a four-byte
// checksum before Base58 encoding.
func base58CheckEncode(version byte, payload []byte) string {
	data := make([]byte, 0, 1+len(payload)+4)
	data = append(data, version)
	data = append(data, payload...)

	checksum := doubleSHA256(data)[:4]
	data = append(data, checksum...)

	return base58Encode(data)
}

// base58Encode encodes data to Base58 with leading-zero preservation.
func base58Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	var zeros int
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	size := (len(data)-zeros)*138/100 + 1 // log(256) / log(58), rounded up
	buf := make([]byte, size)

	for _, b := range data[zeros:] {
		carry := int(b)
		for j := len(buf) - 1; j >= 0; j-- {
			carry += int(buf[j]) << 8
			buf[j] = byte(carry % 58)
			carry /= 58
		}
	}

	j := 0
	for j < len(buf) && buf[j] == 0 {
		j++
	}

	result := make([]byte, zeros+len(buf)-j)
	for i := 0; i < zeros; i++ {
		result[i] = '1'
	}
	for i, b := range buf[j:] {
		result[zeros+i] = base58Alphabet[b]
	}

	return string(result)
}
