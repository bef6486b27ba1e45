package cli

import (
	"math/big"
	"path/filepath"

	"github.com/tidewallet/tide/internal/chain/eth"
	"github.com/tidewallet/tide/internal/chain/eth/etherscan"
	"github.com/tidewallet/tide/internal/session"
	"github.com/tidewallet/tide/internal/vault"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// Unlocked sessions are tracked in a registry keyed by opaque handle, so
// teardown in PersistentPostRun closes whatever a command left unlocked.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var (
	sessionRegistry *session.Registry
	sessionHandle   string
)

// registerSession tracks an unlocked session for teardown.
func registerSession(s *session.Session) error {
	if sessionRegistry == nil {
		sessionRegistry = session.NewRegistry(cfg.Session.TTL)
	}

	handle, err := sessionRegistry.Create(s)
	if err != nil {
		return err
	}
	sessionHandle = handle
	return nil
}

// releaseSession closes and drops the tracked session, if any.
func releaseSession() {
	if sessionRegistry == nil || sessionHandle == "" {
		return
	}
	sessionRegistry.Remove(sessionHandle)
	sessionHandle = ""
}

// activeSession resolves the tracked session; expired handles read as
// no session.
func activeSession() (*session.Session, error) {
	if sessionRegistry == nil || sessionHandle == "" {
		return nil, walleterr.ErrSessionNotFound
	}
	return sessionRegistry.Get(sessionHandle)
}

// openSession wires a session from the loaded config. The vault lives
// under <home>/vault; the explorer client is present only when an API key
// is configured.
func openSession() (*session.Session, *vault.Vault, error) {
	storage := vault.NewFileStorage(filepath.Join(cfg.Home, "vault"))
	vlt := vault.New(storage)

	client := eth.NewClient(cfg.Network.RPC, big.NewInt(cfg.Network.ChainID))

	var history *etherscan.Client
	if cfg.History.APIKey != "" {
		var err error
		history, err = etherscan.NewClient(cfg.History.APIKey, &etherscan.ClientOptions{
			BaseURL: cfg.History.APIURL,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	return session.New(cfg, vlt, client, history, logger), vlt, nil
}

// unlockedSession opens a session, unlocks the existing vault with the
// PIN, and derives the account at index so chain operations are allowed.
// The session is registered for teardown; callers re-resolve it through
// activeSession across user-facing pauses.
func unlockedSession(pin string, index uint32) (*session.Session, error) {
	s, vlt, err := openSession()
	if err != nil {
		return nil, err
	}

	if !vlt.HasSeed() {
		return nil, walleterr.WithSuggestion(
			walleterr.ErrSeedNotFound,
			"run 'tide init' to create a wallet or 'tide import' to restore one",
		)
	}

	if _, err := s.Initialize("", pin); err != nil {
		return nil, err
	}
	if _, err := s.DeriveAccounts(index); err != nil {
		s.Close()
		return nil, err
	}

	if err := registerSession(s); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
