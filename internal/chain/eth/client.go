package eth

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tidewallet/tide/internal/chain"
	"github.com/tidewallet/tide/internal/chain/eth/rpc"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// ERC-20 balanceOf selector: keccak256("balanceOf(address)")[0:4]
//
//nolint:gochecknoglobals // protocol constant
var erc20BalanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// Client talks to one Ethereum network. It owns nonce tracking for the
// addresses it sends from; all sends for an address must go through the
// same Client or nonces will collide.
type Client struct {
	rpc     *rpc.Client
	chainID *big.Int
	nonces  *NonceManager
	retry   chain.RetryConfig
}

// NewClient creates a client for a node endpoint and chain ID.
func NewClient(nodeURL string, chainID *big.Int) *Client {
	return &Client{
		rpc:     rpc.NewClient(nodeURL),
		chainID: chainID,
		nonces:  NewNonceManager(),
		retry:   chain.DefaultRetryConfig(),
	}
}

// ChainID returns the configured chain ID.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// RPC exposes the underlying JSON-RPC client.
func (c *Client) RPC() *rpc.Client {
	return c.rpc
}

// GetBalance returns the confirmed balance in wei.
func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	return chain.RetryWithConfig(ctx, c.retry, func() (*big.Int, error) {
		return c.rpc.GetBalance(ctx, normalized, "latest")
	})
}

// GetTokenBalance reads an ERC-20 balance via eth_call.
func (c *Client) GetTokenBalance(ctx context.Context, tokenAddress, holder string) (*big.Int, error) {
	token, err := NormalizeAddress(tokenAddress)
	if err != nil {
		return nil, err
	}
	owner, err := NormalizeAddress(holder)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 36) // selector + padded address
	copy(data[:4], erc20BalanceOfSelector)
	copy(data[16:36], common.HexToAddress(owner).Bytes())

	result, err := chain.RetryWithConfig(ctx, c.retry, func() ([]byte, error) {
		return c.rpc.EthCall(ctx, rpc.CallMsg{To: token, Data: data}, "latest")
	})
	if err != nil {
		return nil, err
	}

	return new(big.Int).SetBytes(result), nil
}

// GetNonce returns the next nonce for an address, reconciling the node's
// pending count with locally reserved nonces.
func (c *Client) GetNonce(ctx context.Context, address string) (uint64, error) {
	rpcNonce, err := chain.RetryWithConfig(ctx, c.retry, func() (uint64, error) {
		return c.rpc.GetTransactionCount(ctx, address, "pending")
	})
	if err != nil {
		return 0, err
	}
	return c.nonces.Next(address, rpcNonce), nil
}

// TransferRequest describes a transfer to build, sign, and broadcast.
type TransferRequest struct {
	From   string   // sender address, must match PrivateKey
	To     string   // recipient
	Amount *big.Int // in wei for native, in token minor units for ERC-20
	Token  string   // ERC-20 contract address, empty for native ETH

	// PrivateKey is consumed by Send: it is zeroed before Send returns,
	// success or failure.
	PrivateKey []byte

	GasLimit uint64   // optional override
	Speed    GasSpeed // confirmation speed, default medium
}

// TransferResult reports a broadcast transaction.
type TransferResult struct {
	Hash     string
	From     string
	To       string
	Amount   *big.Int
	Token    string
	Fee      *big.Int // worst-case fee in wei, GasLimit * GasPrice
	GasLimit uint64
	GasPrice *big.Int
	Nonce    uint64
}

// Send builds, signs, and broadcasts a transfer. Broadcast is retried once
// on transport failure; node rejections are definitive. After any failed
// broadcast the reserved nonce is released.
func (c *Client) Send(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	defer ZeroPrivateKey(req.PrivateKey)

	from, err := NormalizeAddress(req.From)
	if err != nil {
		return nil, walleterr.Wrap(err, "from address")
	}
	to, err := NormalizeAddress(req.To)
	if err != nil {
		return nil, walleterr.Wrap(err, "to address")
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, walleterr.Wrap(walleterr.ErrInvalidAmount, "amount must be positive")
	}

	var params *TxParams
	if req.Token != "" {
		token, tokenErr := NormalizeAddress(req.Token)
		if tokenErr != nil {
			return nil, walleterr.Wrap(tokenErr, "token address")
		}
		params, err = NewTokenTransferParams(from, to, token, req.Amount)
		if err != nil {
			return nil, err
		}
	} else {
		params = NewTransferParams(from, to, req.Amount)
	}

	estimate, err := c.EstimateGas(ctx, rpc.CallMsg{
		From:  from,
		To:    params.To,
		Value: params.Value,
		Data:  params.Data,
	}, req.Speed)
	if err != nil {
		return nil, walleterr.Wrap(err, "estimating gas")
	}

	params.GasLimit = estimate.GasLimit
	params.GasPrice = estimate.GasPrice
	if req.GasLimit > 0 {
		params.GasLimit = req.GasLimit
	}
	fee := new(big.Int).Mul(params.GasPrice, new(big.Int).SetUint64(params.GasLimit))

	if err := c.checkFunds(ctx, from, params.Value, fee); err != nil {
		return nil, err
	}

	params.Nonce, err = c.GetNonce(ctx, from)
	if err != nil {
		return nil, walleterr.Wrap(err, "fetching nonce")
	}
	params.ChainID = c.chainID

	tx, err := BuildTransaction(params)
	if err != nil {
		return nil, err
	}

	signedTx, err := SignTransaction(tx, req.PrivateKey, c.chainID)
	if err != nil {
		c.nonces.Reset(from)
		return nil, walleterr.Wrap(err, "signing transaction")
	}

	raw, err := signedTx.MarshalBinary()
	if err != nil {
		c.nonces.Reset(from)
		return nil, walleterr.Wrap(err, "encoding transaction")
	}

	hash, err := chain.RetryWithConfig(ctx, c.retry, func() (string, error) {
		return c.rpc.SendRawTransaction(ctx, raw)
	})
	if err != nil {
		c.nonces.Reset(from)
		return nil, classifyBroadcastError(err)
	}

	return &TransferResult{
		Hash:     hash,
		From:     from,
		To:       to,
		Amount:   new(big.Int).Set(req.Amount),
		Token:    req.Token,
		Fee:      fee,
		GasLimit: params.GasLimit,
		GasPrice: new(big.Int).Set(params.GasPrice),
		Nonce:    params.Nonce,
	}, nil
}

// checkFunds verifies the sender can cover value plus the worst-case fee.
// For token transfers value is zero and only the fee is checked against
// the native balance; the token contract enforces its own balance.
func (c *Client) checkFunds(ctx context.Context, from string, value, fee *big.Int) error {
	balance, err := c.GetBalance(ctx, from)
	if err != nil {
		return walleterr.Wrap(err, "fetching balance")
	}

	required := new(big.Int).Add(value, fee)
	if balance.Cmp(required) < 0 {
		return walleterr.WithDetails(walleterr.ErrInsufficientFunds, map[string]string{
			"balance":  balance.String(),
			"required": required.String(),
			"fee":      fee.String(),
		})
	}
	return nil
}

// serverErrorCode is the JSON-RPC code geth-family nodes use for
// execution-level rejections, funds shortfalls included.
const serverErrorCode = "-32000"

// classifyBroadcastError upgrades a node funds rejection to the dedicated
// kind so callers need not parse node messages. The rejection is keyed on
// the JSON-RPC error code; the code alone covers several rejection causes
// (nonce, gas, funds), so the node's message disambiguates as a last
// resort — the protocol carries no structured cause beyond code+message.
func classifyBroadcastError(err error) error {
	var we *walleterr.WalletError
	if walleterr.Is(err, walleterr.ErrRPC) && walleterr.As(err, &we) &&
		we.Details["code"] == serverErrorCode &&
		strings.Contains(strings.ToLower(we.Message), "insufficient funds") {
		return walleterr.Wrap(walleterr.ErrInsufficientFunds, "node rejected broadcast")
	}
	return walleterr.Wrap(err, "broadcasting transaction")
}
