package session

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewallet/tide/internal/chain/eth"
	"github.com/tidewallet/tide/internal/config"
	"github.com/tidewallet/tide/internal/vault"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

func registrySession(t *testing.T) *Session {
	t.Helper()
	cfg := testConfig(t, "http://127.0.0.1:1")
	vlt := vault.New(vault.NewMemoryStorage())
	client := eth.NewClient(cfg.Network.RPC, big.NewInt(cfg.Network.ChainID))
	return New(cfg, vlt, client, nil, config.NullLogger())
}

func TestRegistryCreateAndGet(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(time.Minute)

	s := registrySession(t)
	handle, err := reg.Create(s)
	require.NoError(t, err)
	assert.Len(t, handle, 2*handleBytes)

	got, err := reg.Get(handle)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestRegistryUnknownHandle(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(time.Minute)

	_, err := reg.Get("no-such-handle")
	assert.True(t, walleterr.Is(err, walleterr.ErrSessionNotFound))
}

func TestRegistryIsolation(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(time.Minute)

	first := registrySession(t)
	second := registrySession(t)

	h1, err := reg.Create(first)
	require.NoError(t, err)
	h2, err := reg.Create(second)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)

	_, err = first.Initialize(testMnemonic, testPIN)
	require.NoError(t, err)

	got1, err := reg.Get(h1)
	require.NoError(t, err)
	got2, err := reg.Get(h2)
	require.NoError(t, err)

	assert.Equal(t, StateInitialized, got1.State())
	assert.Equal(t, StateUninitialized, got2.State())
}

func TestRegistryIdleExpiry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(time.Minute)
	now := time.Now()
	reg.now = func() time.Time { return now }

	s := registrySession(t)
	_, err := s.Initialize(testMnemonic, testPIN)
	require.NoError(t, err)

	handle, err := reg.Create(s)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)

	_, err = reg.Get(handle)
	assert.True(t, walleterr.Is(err, walleterr.ErrSessionNotFound))
	assert.Equal(t, StateUninitialized, s.State())
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryGetTouchesIdleTimer(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(time.Minute)
	now := time.Now()
	reg.now = func() time.Time { return now }

	handle, err := reg.Create(registrySession(t))
	require.NoError(t, err)

	// Touch just inside the window, then advance past the original
	// deadline. The touched session must survive.
	now = now.Add(50 * time.Second)
	_, err = reg.Get(handle)
	require.NoError(t, err)

	now = now.Add(50 * time.Second)
	_, err = reg.Get(handle)
	assert.NoError(t, err)
}

func TestRegistrySweep(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(time.Minute)
	now := time.Now()
	reg.now = func() time.Time { return now }

	_, err := reg.Create(registrySession(t))
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	fresh, err := reg.Create(registrySession(t))
	require.NoError(t, err)

	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Get(fresh)
	assert.NoError(t, err)
}

func TestRegistryRemove(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(time.Minute)

	s := registrySession(t)
	_, err := s.Initialize(testMnemonic, testPIN)
	require.NoError(t, err)

	handle, err := reg.Create(s)
	require.NoError(t, err)

	reg.Remove(handle)
	assert.Equal(t, StateUninitialized, s.State())

	_, err = reg.Get(handle)
	assert.True(t, walleterr.Is(err, walleterr.ErrSessionNotFound))

	// Removing again is a no-op.
	reg.Remove(handle)
}

func TestRegistryZeroTTLNeverExpires(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(0)
	now := time.Now()
	reg.now = func() time.Time { return now }

	handle, err := reg.Create(registrySession(t))
	require.NoError(t, err)

	now = now.Add(24 * time.Hour)

	_, err = reg.Get(handle)
	assert.NoError(t, err)
}
