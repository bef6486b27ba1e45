// Package session orchestrates the wallet core. A Session is the unit of
// isolation: one per logical user, no shared mutable state between
// sessions, and the only surface the application layer should call. It
// drives the vault, derivation, and chain clients through a small state
// machine and serializes sends per account so nonce assignment never races.
package session

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/tidewallet/tide/internal/chain"
	"github.com/tidewallet/tide/internal/chain/eth"
	"github.com/tidewallet/tide/internal/chain/eth/etherscan"
	"github.com/tidewallet/tide/internal/config"
	"github.com/tidewallet/tide/internal/hdkey"
	"github.com/tidewallet/tide/internal/vault"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// State is the session lifecycle position.
type State int

// Session states, in order.
const (
	StateUninitialized State = iota
	StateInitialized         // seed known
	StateAccountsDerived     // derivation ran, not yet complete for all chains
	StateReady               // all chains derived, operations allowed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateAccountsDerived:
		return "accounts-derived"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Session is a per-user wallet orchestrator.
type Session struct {
	mu    sync.Mutex
	state State

	cfg     *config.Config
	vault   *vault.Vault
	eth     *eth.Client
	history *etherscan.Client // nil when no explorer is configured
	log     *config.Logger

	seeds    *seedCache
	accounts map[chain.ID][]hdkey.Account
	balances map[string]*big.Int // last known balance per chain:address

	sendMu  sync.Mutex
	sendLks map[string]*sync.Mutex // per-account send serialization

	pending map[string]*PendingTransaction
}

// New creates an uninitialized session. The history client may be nil.
func New(cfg *config.Config, vlt *vault.Vault, ethClient *eth.Client, history *etherscan.Client, log *config.Logger) *Session {
	if log == nil {
		log = config.NullLogger()
	}
	return &Session{
		cfg:      cfg,
		vault:    vlt,
		eth:      ethClient,
		history:  history,
		log:      log,
		seeds:    newSeedCache(),
		accounts: make(map[chain.ID][]hdkey.Account),
		balances: make(map[string]*big.Int),
		sendLks:  make(map[string]*sync.Mutex),
		pending:  make(map[string]*PendingTransaction),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Initialize brings the session to Initialized. With an empty mnemonic it
// either unlocks the existing vault or, when the vault is empty, generates
// a fresh 12-word phrase and stores it under the PIN. The mnemonic in use
// is returned so a newly generated phrase can be shown for backup exactly
// once.
func (s *Session) Initialize(mnemonic, pin string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pin == "" {
		return "", walleterr.Wrap(walleterr.ErrValidation, "pin is required")
	}

	switch {
	case mnemonic != "":
		mnemonic = hdkey.NormalizeMnemonicInput(mnemonic)
		if err := hdkey.ValidateMnemonic(mnemonic); err != nil {
			return "", err
		}
		if err := s.vault.StoreSeed(mnemonic, pin); err != nil {
			return "", err
		}
	case s.vault.HasSeed():
		stored, err := s.vault.RetrieveSeed(pin)
		if err != nil {
			return "", err
		}
		mnemonic = stored
	default:
		generated, err := hdkey.GenerateMnemonic(12)
		if err != nil {
			return "", err
		}
		if err := s.vault.StoreSeed(generated, pin); err != nil {
			return "", err
		}
		mnemonic = generated
	}

	seed, err := hdkey.MnemonicToSeed(mnemonic, "")
	if err != nil {
		return "", err
	}
	defer hdkey.ZeroBytes(seed)

	if err := s.seeds.put(seed, s.cfg.Session.TTL); err != nil {
		return "", err
	}

	s.state = StateInitialized
	s.log.Debug("session initialized")
	return mnemonic, nil
}

// DeriveAccounts derives the account at index for every supported chain.
// The session reaches Ready once derivation succeeds for all of them.
func (s *Session) DeriveAccounts(index uint32) ([]hdkey.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state < StateInitialized {
		return nil, walleterr.WithSuggestion(walleterr.ErrNotInitialized, "call initialize first")
	}

	seed, ok := s.seeds.get()
	if !ok {
		return nil, walleterr.WithSuggestion(walleterr.ErrNotInitialized, "session expired, initialize again")
	}
	defer hdkey.ZeroBytes(seed)

	derived := make([]hdkey.Account, 0, len(chain.All()))
	for _, chainID := range chain.All() {
		s.state = StateAccountsDerived

		account, err := hdkey.DeriveAccount(seed, chainID, index)
		if err != nil {
			return nil, walleterr.Wrap(err, "deriving %s account %d", chainID, index)
		}

		s.storeAccountLocked(*account)
		derived = append(derived, *account)
	}

	s.state = StateReady
	s.log.Debug("derived account index %d for %d chains", index, len(derived))
	return derived, nil
}

// Accounts returns the derived accounts for a chain, index order.
func (s *Session) Accounts(chainID chain.ID) []hdkey.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]hdkey.Account, len(s.accounts[chainID]))
	copy(out, s.accounts[chainID])
	return out
}

// Balance is a balance report. Stale marks a cached or zero value
// reported because the live fetch failed.
type Balance struct {
	Chain   chain.ID
	Address string
	Amount  *big.Int
	Stale   bool
}

// FetchBalance reads the native balance for the account at index. A fetch
// failure degrades to the last known balance (or zero) marked stale
// instead of failing the session.
func (s *Session) FetchBalance(ctx context.Context, chainID chain.ID, index uint32) (*Balance, error) {
	account, err := s.readyAccount(chainID, index)
	if err != nil {
		return nil, err
	}
	if chainID != chain.ETH {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "balance fetch is not supported for %s", chainID)
	}

	cacheKey := string(chainID) + ":" + account.Address

	amount, err := s.eth.GetBalance(ctx, account.Address)
	if err != nil {
		s.log.Error("balance fetch failed for %s: %v", account.Address, err)

		s.mu.Lock()
		stale := s.balances[cacheKey]
		s.mu.Unlock()
		if stale == nil {
			stale = big.NewInt(0)
		}
		return &Balance{Chain: chainID, Address: account.Address, Amount: stale, Stale: true}, nil
	}

	s.mu.Lock()
	s.balances[cacheKey] = new(big.Int).Set(amount)
	s.mu.Unlock()

	return &Balance{Chain: chainID, Address: account.Address, Amount: amount}, nil
}

// FetchTokenBalance reads an ERC-20 balance for the account at index.
// Token fetch failures degrade the same way native ones do.
func (s *Session) FetchTokenBalance(ctx context.Context, symbol string, index uint32) (*Balance, error) {
	account, err := s.readyAccount(chain.ETH, index)
	if err != nil {
		return nil, err
	}

	token, ok := s.cfg.Token(symbol)
	if !ok {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "unknown token %q", symbol)
	}

	cacheKey := symbol + ":" + account.Address

	amount, err := s.eth.GetTokenBalance(ctx, token.Address, account.Address)
	if err != nil {
		s.log.Error("token balance fetch failed for %s: %v", account.Address, err)

		s.mu.Lock()
		stale := s.balances[cacheKey]
		s.mu.Unlock()
		if stale == nil {
			stale = big.NewInt(0)
		}
		return &Balance{Chain: chain.ETH, Address: account.Address, Amount: stale, Stale: true}, nil
	}

	s.mu.Lock()
	s.balances[cacheKey] = new(big.Int).Set(amount)
	s.mu.Unlock()

	return &Balance{Chain: chain.ETH, Address: account.Address, Amount: amount}, nil
}

// PrepareTransfer validates and parses a transfer without touching the
// network, and holds it for approval. The decimal amount converts to
// minor units with exact integer arithmetic.
func (s *Session) PrepareTransfer(index uint32, to, amount, token string) (*PendingTransaction, error) {
	if _, err := s.readyAccount(chain.ETH, index); err != nil {
		return nil, err
	}

	normalized, err := eth.NormalizeAddress(to)
	if err != nil {
		return nil, err
	}

	decimals := chain.DecimalsETH
	if token != "" {
		tokenCfg, ok := s.cfg.Token(token)
		if !ok {
			return nil, walleterr.Wrap(walleterr.ErrValidation, "unknown token %q", token)
		}
		decimals = tokenCfg.Decimals
	}

	minor, err := chain.ParsePositiveAmount(amount, decimals)
	if err != nil {
		return nil, err
	}

	id, err := newPendingID()
	if err != nil {
		return nil, err
	}

	pt := &PendingTransaction{
		ID:        id,
		Kind:      PendingTransfer,
		CreatedAt: time.Now().UTC(),
		Transfer: &TransferIntent{
			To:      normalized,
			Amount:  minor,
			Token:   token,
			Chain:   chain.ETH,
			Account: index,
		},
	}

	s.mu.Lock()
	s.pending[id] = pt
	s.mu.Unlock()
	return pt, nil
}

// PrepareSwap holds a swap intent for approval. Swaps are never executed
// here; approval only hands the intent back to the caller.
func (s *Session) PrepareSwap(fromToken, toToken, amount string, slippageBps int) (*PendingTransaction, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if fromToken == "" || toToken == "" || fromToken == toToken {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "swap needs two distinct tokens")
	}
	if slippageBps < 0 || slippageBps > 10_000 {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "slippage must be between 0 and 10000 basis points")
	}

	decimals := chain.DecimalsETH
	if tokenCfg, ok := s.cfg.Token(fromToken); ok {
		decimals = tokenCfg.Decimals
	}

	minor, err := chain.ParsePositiveAmount(amount, decimals)
	if err != nil {
		return nil, err
	}

	id, err := newPendingID()
	if err != nil {
		return nil, err
	}

	pt := &PendingTransaction{
		ID:        id,
		Kind:      PendingSwap,
		CreatedAt: time.Now().UTC(),
		Swap: &SwapIntent{
			FromToken:   fromToken,
			ToToken:     toToken,
			Amount:      minor,
			SlippageBps: slippageBps,
		},
	}

	s.mu.Lock()
	s.pending[id] = pt
	s.mu.Unlock()
	return pt, nil
}

// ApproveResult reports what approval did.
type ApproveResult struct {
	Pending *PendingTransaction

	// Transfer is set when the approved operation was broadcast.
	// Swap approvals return the consumed intent only.
	Transfer *eth.TransferResult
}

// Approve consumes a pending transaction. Transfers are signed and
// broadcast; swaps are handed back unexecuted.
func (s *Session) Approve(ctx context.Context, id, pin string) (*ApproveResult, error) {
	pt, err := s.consumePending(id)
	if err != nil {
		return nil, err
	}

	if pt.Kind == PendingSwap {
		return &ApproveResult{Pending: pt}, nil
	}

	intent := pt.Transfer
	result, err := s.sendMinorUnits(ctx, pin, intent.Account, intent.To, intent.Amount, intent.Token)
	if err != nil {
		return nil, err
	}
	return &ApproveResult{Pending: pt, Transfer: result}, nil
}

// Reject consumes a pending transaction without executing it.
func (s *Session) Reject(id string) (*PendingTransaction, error) {
	return s.consumePending(id)
}

// consumePending marks a pending transaction consumed, exactly once.
func (s *Session) consumePending(id string) (*PendingTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pt, ok := s.pending[id]
	if !ok {
		return nil, walleterr.WithDetails(
			walleterr.Wrap(walleterr.ErrValidation, "unknown pending transaction"),
			map[string]string{"pending_id": id},
		)
	}
	if pt.consumed {
		return nil, walleterr.ErrPendingConsumed
	}

	// Consumed entries stay in the map so a second approval attempt is
	// distinguishable from an unknown id.
	pt.consumed = true
	return pt, nil
}

// SendTransfer parses the decimal amount and sends in one call, outside
// the approval flow.
func (s *Session) SendTransfer(ctx context.Context, pin string, index uint32, to, amount, token string) (*eth.TransferResult, error) {
	if _, err := s.readyAccount(chain.ETH, index); err != nil {
		return nil, err
	}

	decimals := chain.DecimalsETH
	if token != "" {
		tokenCfg, ok := s.cfg.Token(token)
		if !ok {
			return nil, walleterr.Wrap(walleterr.ErrValidation, "unknown token %q", token)
		}
		decimals = tokenCfg.Decimals
	}

	minor, err := chain.ParsePositiveAmount(amount, decimals)
	if err != nil {
		return nil, err
	}

	return s.sendMinorUnits(ctx, pin, index, to, minor, token)
}

// sendMinorUnits signs and broadcasts. Sends from the same account are
// serialized; independent accounts proceed concurrently.
func (s *Session) sendMinorUnits(ctx context.Context, pin string, index uint32, to string, amount *big.Int, token string) (*eth.TransferResult, error) {
	account, err := s.readyAccount(chain.ETH, index)
	if err != nil {
		return nil, err
	}

	lock := s.sendLock(account.Address)
	lock.Lock()
	defer lock.Unlock()

	seed, err := s.unlockSeed(pin)
	if err != nil {
		return nil, err
	}
	defer hdkey.ZeroBytes(seed)

	// Signing must use the key behind the address the user was shown.
	match, err := hdkey.DeriveMatchingKey(seed, chain.ETH, index, account.Address)
	if err != nil {
		return nil, err
	}
	if match.Strategy != "bip44" {
		s.log.Debug("account %d matched via %s path %s", index, match.Strategy, match.Path)
	}

	tokenAddress := ""
	if token != "" {
		tokenCfg, ok := s.cfg.Token(token)
		if !ok {
			hdkey.ZeroBytes(match.PrivateKey)
			return nil, walleterr.Wrap(walleterr.ErrValidation, "unknown token %q", token)
		}
		tokenAddress = tokenCfg.Address
	}

	result, err := s.eth.Send(ctx, eth.TransferRequest{
		From:       account.Address,
		To:         to,
		Amount:     amount,
		Token:      tokenAddress,
		PrivateKey: match.PrivateKey, // zeroed by Send
	})
	if err != nil {
		s.log.Error("send from %s failed: %v", account.Address, err)
		return nil, err
	}

	result.Token = token
	s.log.Debug("broadcast %s from %s nonce %d", result.Hash, account.Address, result.Nonce)
	return result, nil
}

// GetHistory lists recent transactions for the account at index.
func (s *Session) GetHistory(ctx context.Context, index uint32, limit int) ([]etherscan.Transaction, error) {
	account, err := s.readyAccount(chain.ETH, index)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, walleterr.WithSuggestion(
			walleterr.Wrap(walleterr.ErrConfigInvalid, "no block explorer configured"),
			"set history.api_key in the config file",
		)
	}

	return s.history.GetHistory(ctx, account.Address, limit)
}

// Close drops the cached seed and resets the session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seeds.clear()
	s.state = StateUninitialized
	s.accounts = make(map[chain.ID][]hdkey.Account)
	s.balances = make(map[string]*big.Int)
	s.pending = make(map[string]*PendingTransaction)
}

// unlockSeed returns the seed from the cache, or re-unlocks the vault with
// the PIN when the cache has expired. The caller must zero the result.
func (s *Session) unlockSeed(pin string) ([]byte, error) {
	if seed, ok := s.seeds.get(); ok {
		return seed, nil
	}

	if pin == "" {
		return nil, walleterr.WithSuggestion(walleterr.ErrNotInitialized, "session expired, unlock with your PIN")
	}

	mnemonic, err := s.vault.RetrieveSeed(pin)
	if err != nil {
		return nil, err
	}

	seed, err := hdkey.MnemonicToSeed(mnemonic, "")
	if err != nil {
		return nil, err
	}

	if err := s.seeds.put(seed, s.cfg.Session.TTL); err != nil {
		hdkey.ZeroBytes(seed)
		return nil, err
	}
	return seed, nil
}

// ensureReady gates operations on the Ready state.
func (s *Session) ensureReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		return walleterr.WithDetails(walleterr.ErrNotInitialized, map[string]string{
			"state": s.state.String(),
		})
	}
	return nil
}

// readyAccount gates on Ready and returns the derived account at index.
func (s *Session) readyAccount(chainID chain.ID, index uint32) (*hdkey.Account, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.accounts[chainID] {
		if s.accounts[chainID][i].Index == index {
			account := s.accounts[chainID][i]
			return &account, nil
		}
	}

	return nil, walleterr.WithDetails(
		walleterr.Wrap(walleterr.ErrValidation, "account %d is not derived", index),
		map[string]string{"chain": string(chainID)},
	)
}

// storeAccountLocked inserts or replaces a derived account. Caller holds mu.
func (s *Session) storeAccountLocked(account hdkey.Account) {
	list := s.accounts[account.Chain]
	for i := range list {
		if list[i].Index == account.Index {
			list[i] = account
			return
		}
	}
	s.accounts[account.Chain] = append(list, account)
}

// sendLock returns the mutex serializing sends for one account.
func (s *Session) sendLock(address string) *sync.Mutex {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	lock, ok := s.sendLks[address]
	if !ok {
		lock = &sync.Mutex{}
		s.sendLks[address] = lock
	}
	return lock
}
