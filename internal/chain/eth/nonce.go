package eth

import "sync"

// NonceManager tracks the highest nonce handed out per address so that
// transactions sent back-to-back, before the first reaches the mempool,
// do not collide on the same nonce.
type NonceManager struct {
	mu     sync.Mutex
	nonces map[string]uint64 // address -> one past the highest nonce used
}

// NewNonceManager creates an empty tracker.
func NewNonceManager() *NonceManager {
	return &NonceManager{nonces: make(map[string]uint64)}
}

// Next reconciles the node-reported pending nonce with local tracking and
// returns the nonce to use. The node wins when it is ahead (another client
// may have sent from the same address); local tracking wins when the
// mempool has not caught up yet.
func (nm *NonceManager) Next(address string, rpcNonce uint64) uint64 {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	nonce := rpcNonce
	if local, ok := nm.nonces[address]; ok && local > rpcNonce {
		nonce = local
	}

	nm.nonces[address] = nonce + 1
	return nonce
}

// Reset drops local tracking for an address. Called after a failed
// broadcast, when the reserved nonce never reached the network.
func (nm *NonceManager) Reset(address string) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	delete(nm.nonces, address)
}
