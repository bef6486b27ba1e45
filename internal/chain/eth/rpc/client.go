// Package rpc implements a minimal JSON-RPC 2.0 client for Ethereum nodes.
// Failures are classified into two kinds: transport failures (the node was
// never reached, or answered garbage) and RPC rejections (the node received
// the request and said no). Retry logic upstream keys off that split —
// transport failures may be retried, rejections are definitive.
package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// defaultTimeout bounds a single HTTP round trip.
const defaultTimeout = 30 * time.Second

// Client is a minimal Ethereum JSON-RPC client.
type Client struct {
	url        string
	httpClient *http.Client
	idCounter  atomic.Uint64
}

// NewClient creates a client for the given node endpoint.
func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithHTTP creates a client using a caller-supplied HTTP client.
func NewClientWithHTTP(url string, httpClient *http.Client) *Client {
	return &Client{url: url, httpClient: httpClient}
}

// URL returns the node endpoint this client talks to.
func (c *Client) URL() string { return c.url }

// request is a JSON-RPC 2.0 request envelope.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

// response is a JSON-RPC 2.0 response envelope.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *NodeError      `json:"error,omitempty"`
}

// NodeError is the error object a node returns inside a JSON-RPC response.
type NodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Call performs a JSON-RPC call and returns the raw result.
// A reachable node that returns an error object yields a rejection; any
// failure to reach the node or decode its response yields a transport error.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.idCounter.Add(1),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrTransport, "calling %s", method)
	}
	// Close error ignored: it only fails on an already-broken connection.
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrTransport, "reading %s response", method)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, walleterr.WithDetails(
			walleterr.Wrap(walleterr.ErrTransport, "calling %s", method),
			map[string]string{"status": httpResp.Status},
		)
	}

	var resp response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, walleterr.Wrap(walleterr.ErrTransport, "decoding %s response", method)
	}

	if resp.Error != nil {
		return nil, walleterr.WithDetails(
			walleterr.Wrap(walleterr.ErrRPC, "%s: %s", method, resp.Error.Message),
			map[string]string{"code": fmt.Sprintf("%d", resp.Error.Code)},
		)
	}

	return resp.Result, nil
}

// callHexBigInt performs a call whose result is a quantity-encoded hex string.
func (c *Client) callHexBigInt(ctx context.Context, method string, params ...any) (*big.Int, error) {
	result, err := c.Call(ctx, method, params...)
	if err != nil {
		return nil, err
	}

	var hexVal string
	if err := json.Unmarshal(result, &hexVal); err != nil {
		return nil, walleterr.Wrap(walleterr.ErrTransport, "parsing %s result", method)
	}

	return parseHexBigInt(hexVal)
}

// ChainID returns the chain ID of the connected node.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.callHexBigInt(ctx, "eth_chainId")
}

// GetBalance returns the balance of an address in wei.
func (c *Client) GetBalance(ctx context.Context, address, block string) (*big.Int, error) {
	if block == "" {
		block = "latest"
	}
	return c.callHexBigInt(ctx, "eth_getBalance", address, block)
}

// GetTransactionCount returns the nonce for an address.
// The default block is "pending" so that queued transactions count.
func (c *Client) GetTransactionCount(ctx context.Context, address, block string) (uint64, error) {
	if block == "" {
		block = "pending"
	}

	n, err := c.callHexBigInt(ctx, "eth_getTransactionCount", address, block)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// GasPrice returns the current gas price in wei.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.callHexBigInt(ctx, "eth_gasPrice")
}

// CallMsg holds the parameters for eth_call and eth_estimateGas.
type CallMsg struct {
	From  string   `json:"from,omitempty"`
	To    string   `json:"to"`
	Gas   uint64   `json:"gas,omitempty"`
	Value *big.Int `json:"value,omitempty"`
	Data  []byte   `json:"data,omitempty"`
}

// MarshalJSON encodes the message with quantity fields in hex.
func (m CallMsg) MarshalJSON() ([]byte, error) {
	type callMsgJSON struct {
		From  string `json:"from,omitempty"`
		To    string `json:"to"`
		Gas   string `json:"gas,omitempty"`
		Value string `json:"value,omitempty"`
		Data  string `json:"data,omitempty"`
	}

	msg := callMsgJSON{
		From: m.From,
		To:   m.To,
	}

	if m.Gas > 0 {
		msg.Gas = fmt.Sprintf("0x%x", m.Gas)
	}
	if m.Value != nil && m.Value.Sign() > 0 {
		msg.Value = "0x" + m.Value.Text(16)
	}
	if len(m.Data) > 0 {
		msg.Data = "0x" + hex.EncodeToString(m.Data)
	}

	return json.Marshal(msg)
}

// EthCall performs a read-only contract call against a block.
func (c *Client) EthCall(ctx context.Context, msg CallMsg, block string) ([]byte, error) {
	if block == "" {
		block = "latest"
	}

	result, err := c.Call(ctx, "eth_call", msg, block)
	if err != nil {
		return nil, err
	}

	var hexVal string
	if err := json.Unmarshal(result, &hexVal); err != nil {
		return nil, walleterr.Wrap(walleterr.ErrTransport, "parsing eth_call result")
	}

	return parseHexBytes(hexVal)
}

// EstimateGas estimates the gas needed for a transaction.
func (c *Client) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	n, err := c.callHexBigInt(ctx, "eth_estimateGas", msg)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// SendRawTransaction broadcasts a signed transaction and returns its hash.
func (c *Client) SendRawTransaction(ctx context.Context, signedTx []byte) (string, error) {
	hexTx := "0x" + hex.EncodeToString(signedTx)

	result, err := c.Call(ctx, "eth_sendRawTransaction", hexTx)
	if err != nil {
		return "", err
	}

	var txHash string
	if err := json.Unmarshal(result, &txHash); err != nil {
		return "", walleterr.Wrap(walleterr.ErrTransport, "parsing tx hash")
	}

	return txHash, nil
}

// parseHexBigInt parses a quantity-encoded hex string.
// A bare "0x" is treated as zero; some nodes emit it for empty quantities.
func parseHexBigInt(s string) (*big.Int, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return big.NewInt(0), nil
	}

	n := new(big.Int)
	if _, ok := n.SetString(s, 16); !ok {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "invalid hex number %q", s)
	}

	return n, nil
}

// parseHexBytes parses a 0x-prefixed hex string to bytes.
func parseHexBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return []byte{}, nil
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "invalid hex data")
	}
	return data, nil
}
