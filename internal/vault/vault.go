package vault

import (
	"os"
	"time"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// Vault is the seed vault: it stores the seed phrase encrypted under a
// PIN-derived key and returns plaintext only from a decrypt call.
// Neither the PIN nor the plaintext seed is ever logged, on any path.
type Vault struct {
	storage Storage
}

// New creates a Vault backed by the given storage.
func New(storage Storage) *Vault {
	return &Vault{storage: storage}
}

// StoreSeed encrypts the seed phrase under a key derived from pin and
// persists the envelope, overwriting any prior record.
func (v *Vault) StoreSeed(seed, pin string) error {
	if seed == "" {
		return walleterr.Wrap(walleterr.ErrValidation, "seed phrase is empty")
	}
	if pin == "" {
		return walleterr.Wrap(walleterr.ErrValidation, "pin is empty")
	}

	salt, err := NewSalt()
	if err != nil {
		return err
	}

	key := DeriveKey(pin, salt)
	defer ZeroBytes(key)

	ciphertext, iv, err := Encrypt([]byte(seed), key)
	if err != nil {
		return err
	}

	rec := &SeedRecord{
		ID:         "seed",
		Ciphertext: ciphertext,
		IV:         iv,
		Salt:       salt,
		CreatedAt:  time.Now().UTC(),
	}

	return v.storage.SaveSeed(rec)
}

// RetrieveSeed re-derives the key from pin and the stored salt and
// decrypts the seed phrase. A wrong PIN or tampered record surfaces as
// ErrAuthentication; garbage plaintext is never returned.
func (v *Vault) RetrieveSeed(pin string) (string, error) {
	rec, err := v.storage.LoadSeed()
	if err != nil {
		if os.IsNotExist(err) {
			return "", walleterr.ErrSeedNotFound
		}
		return "", err
	}

	key := DeriveKey(pin, rec.Salt)
	defer ZeroBytes(key)

	plaintext, err := Decrypt(rec.Ciphertext, key, rec.IV)
	if err != nil {
		return "", err
	}

	seed := string(plaintext)
	ZeroBytes(plaintext)
	return seed, nil
}

// VerifyPIN reports whether pin decrypts the stored seed. Only
// authentication failures are swallowed; storage errors propagate as false
// alongside the stored-record error semantics of RetrieveSeed.
func (v *Vault) VerifyPIN(pin string) bool {
	_, err := v.RetrieveSeed(pin)
	return err == nil
}

// HasSeed reports whether a seed record exists, without decrypting.
func (v *Vault) HasSeed() bool {
	exists, err := v.storage.HasSeed()
	return err == nil && exists
}

// ChangePIN decrypts with oldPin and re-encrypts under newPin with a
// fresh salt and IV. The write is atomic: on failure the old record stays
// intact and the old PIN keeps working.
func (v *Vault) ChangePIN(oldPin, newPin string) error {
	if newPin == "" {
		return walleterr.Wrap(walleterr.ErrValidation, "new pin is empty")
	}

	seed, err := v.RetrieveSeed(oldPin)
	if err != nil {
		return err
	}

	return v.StoreSeed(seed, newPin)
}

// Clear irreversibly erases the seed record.
func (v *Vault) Clear() error {
	return v.storage.DeleteSeed()
}
