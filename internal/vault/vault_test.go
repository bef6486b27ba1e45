package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestStoreRetrieveRoundTrip(t *testing.T) {
	t.Parallel()

	v := New(NewMemoryStorage())
	require.NoError(t, v.StoreSeed(testMnemonic, "123456"))

	seed, err := v.RetrieveSeed("123456")
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, seed)
}

func TestRetrieveWrongPIN(t *testing.T) {
	t.Parallel()

	v := New(NewMemoryStorage())
	require.NoError(t, v.StoreSeed(testMnemonic, "123456"))

	seed, err := v.RetrieveSeed("000000")
	require.ErrorIs(t, err, walleterr.ErrAuthentication)
	assert.Empty(t, seed)
}

func TestRetrieveNoSeed(t *testing.T) {
	t.Parallel()

	v := New(NewMemoryStorage())
	_, err := v.RetrieveSeed("123456")
	require.ErrorIs(t, err, walleterr.ErrSeedNotFound)
}

func TestRetrieveTamperedCiphertext(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	v := New(storage)
	require.NoError(t, v.StoreSeed(testMnemonic, "123456"))

	rec, err := storage.LoadSeed()
	require.NoError(t, err)
	rec.Ciphertext[0] ^= 0xFF
	require.NoError(t, storage.SaveSeed(rec))

	_, err = v.RetrieveSeed("123456")
	require.ErrorIs(t, err, walleterr.ErrAuthentication)
}

func TestVerifyPIN(t *testing.T) {
	t.Parallel()

	v := New(NewMemoryStorage())
	require.NoError(t, v.StoreSeed(testMnemonic, "123456"))

	assert.True(t, v.VerifyPIN("123456"))
	assert.False(t, v.VerifyPIN("000000"))
	assert.False(t, v.VerifyPIN(""))
}

func TestHasSeed(t *testing.T) {
	t.Parallel()

	v := New(NewMemoryStorage())
	assert.False(t, v.HasSeed())

	require.NoError(t, v.StoreSeed(testMnemonic, "123456"))
	assert.True(t, v.HasSeed())
}

func TestStoreOverwritesPriorRecord(t *testing.T) {
	t.Parallel()

	v := New(NewMemoryStorage())
	require.NoError(t, v.StoreSeed("first seed phrase", "123456"))
	require.NoError(t, v.StoreSeed(testMnemonic, "123456"))

	seed, err := v.RetrieveSeed("123456")
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, seed)
}

func TestChangePIN(t *testing.T) {
	t.Parallel()

	v := New(NewMemoryStorage())
	require.NoError(t, v.StoreSeed(testMnemonic, "123456"))
	require.NoError(t, v.ChangePIN("123456", "654321"))

	seed, err := v.RetrieveSeed("654321")
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, seed)

	_, err = v.RetrieveSeed("123456")
	require.ErrorIs(t, err, walleterr.ErrAuthentication)
}

func TestChangePINWrongOldPIN(t *testing.T) {
	t.Parallel()

	v := New(NewMemoryStorage())
	require.NoError(t, v.StoreSeed(testMnemonic, "123456"))

	err := v.ChangePIN("999999", "654321")
	require.ErrorIs(t, err, walleterr.ErrAuthentication)

	// Old record stays intact after a failed change.
	seed, err := v.RetrieveSeed("123456")
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, seed)
}

func TestChangePINUsesFreshSaltAndIV(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	v := New(storage)
	require.NoError(t, v.StoreSeed(testMnemonic, "123456"))

	before, err := storage.LoadSeed()
	require.NoError(t, err)

	require.NoError(t, v.ChangePIN("123456", "123456"))

	after, err := storage.LoadSeed()
	require.NoError(t, err)
	assert.NotEqual(t, before.Salt, after.Salt)
	assert.NotEqual(t, before.IV, after.IV)
	assert.NotEqual(t, before.Ciphertext, after.Ciphertext)
}

func TestClear(t *testing.T) {
	t.Parallel()

	v := New(NewMemoryStorage())
	require.NoError(t, v.StoreSeed(testMnemonic, "123456"))
	require.NoError(t, v.Clear())

	assert.False(t, v.HasSeed())
	_, err := v.RetrieveSeed("123456")
	require.ErrorIs(t, err, walleterr.ErrSeedNotFound)
}

func TestStoreValidation(t *testing.T) {
	t.Parallel()

	v := New(NewMemoryStorage())
	require.ErrorIs(t, v.StoreSeed("", "123456"), walleterr.ErrValidation)
	require.ErrorIs(t, v.StoreSeed(testMnemonic, ""), walleterr.ErrValidation)
}

func TestFileStorageRoundTrip(t *testing.T) {
	t.Parallel()

	v := New(NewFileStorage(t.TempDir()))
	require.NoError(t, v.StoreSeed(testMnemonic, "123456"))

	seed, err := v.RetrieveSeed("123456")
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, seed)

	require.NoError(t, v.Clear())
	assert.False(t, v.HasSeed())
}

func TestEncryptDecryptEnvelope(t *testing.T) {
	t.Parallel()

	salt, err := NewSalt()
	require.NoError(t, err)
	require.Len(t, salt, SaltLength)

	key := DeriveKey("123456", salt)
	require.Len(t, key, 32)

	ciphertext, iv, err := Encrypt([]byte("payload"), key)
	require.NoError(t, err)
	require.Len(t, iv, 12)

	plaintext, err := Decrypt(ciphertext, key, iv)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(plaintext))

	// Wrong key fails authentication, not garbage output.
	wrongKey := DeriveKey("000000", salt)
	_, err = Decrypt(ciphertext, wrongKey, iv)
	require.ErrorIs(t, err, walleterr.ErrAuthentication)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	t.Parallel()

	salt, err := NewSalt()
	require.NoError(t, err)

	assert.Equal(t, DeriveKey("123456", salt), DeriveKey("123456", salt))
	assert.NotEqual(t, DeriveKey("123456", salt), DeriveKey("123457", salt))
}
