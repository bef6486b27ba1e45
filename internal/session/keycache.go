package session

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"filippo.io/age"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

const (
	// cachePasswordLength is the random passphrase size in bytes.
	cachePasswordLength = 32
	// cacheWorkFactor is the scrypt cost for the cache envelope.
	cacheWorkFactor = 12
)

// seedCache holds the unlocked seed between operations so a PIN entry is
// not required for every send. The seed rests encrypted under a fresh
// random passphrase; plaintext exists only inside each get call, and the
// whole cache dies with its TTL.
type seedCache struct {
	mu         sync.Mutex
	ciphertext []byte
	password   string
	expiresAt  time.Time
}

func newSeedCache() *seedCache {
	return &seedCache{}
}

// put encrypts and stores the seed for ttl. The caller keeps ownership of
// the seed slice and should zero it.
func (c *seedCache) put(seed []byte, ttl time.Duration) error {
	if len(seed) == 0 {
		return walleterr.Wrap(walleterr.ErrValidation, "seed is empty")
	}
	if ttl <= 0 {
		return walleterr.Wrap(walleterr.ErrValidation, "cache ttl must be positive")
	}

	raw := make([]byte, cachePasswordLength)
	if _, err := rand.Read(raw); err != nil {
		return walleterr.Wrap(err, "generating cache passphrase")
	}
	password := hex.EncodeToString(raw)

	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return walleterr.Wrap(err, "creating cache recipient")
	}
	// The passphrase is 256 bits of fresh randomness, so key stretching
	// adds nothing. A low work factor keeps get calls cheap.
	recipient.SetWorkFactor(cacheWorkFactor)

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return walleterr.Wrap(err, "encrypting cached seed")
	}
	if _, err := w.Write(seed); err != nil {
		return walleterr.Wrap(err, "encrypting cached seed")
	}
	if err := w.Close(); err != nil {
		return walleterr.Wrap(err, "encrypting cached seed")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.wipeLocked()
	c.ciphertext = buf.Bytes()
	c.password = password
	c.expiresAt = time.Now().Add(ttl)
	return nil
}

// get decrypts the cached seed. The returned slice is owned by the caller
// and must be zeroed after use. ok is false when nothing usable is cached.
func (c *seedCache) get() (seed []byte, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ciphertext == nil || time.Now().After(c.expiresAt) {
		c.wipeLocked()
		return nil, false
	}

	identity, err := age.NewScryptIdentity(c.password)
	if err != nil {
		return nil, false
	}

	r, err := age.Decrypt(bytes.NewReader(c.ciphertext), identity)
	if err != nil {
		return nil, false
	}

	seed, err = io.ReadAll(r)
	if err != nil {
		return nil, false
	}
	return seed, true
}

// clear drops the cached seed immediately.
func (c *seedCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wipeLocked()
}

// active reports whether an unexpired seed is cached.
func (c *seedCache) active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ciphertext != nil && time.Now().Before(c.expiresAt)
}

func (c *seedCache) wipeLocked() {
	for i := range c.ciphertext {
		c.ciphertext[i] = 0
	}
	c.ciphertext = nil
	c.password = ""
	c.expiresAt = time.Time{}
}
