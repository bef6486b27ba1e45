// Package etherscan provides an Etherscan API client for transaction
// history and balance queries.
package etherscan

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidewallet/tide/internal/chain"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

const (
	// DefaultBaseURL is the Etherscan API v2 base URL.
	DefaultBaseURL = "https://api.etherscan.io/v2"

	// DefaultChainID targets Ethereum mainnet in the v2 API.
	DefaultChainID = "1"

	// DefaultHistoryLimit caps the transactions returned per query.
	DefaultHistoryLimit = 25

	httpTimeout = 30 * time.Second

	// maxResponseBody caps the response size read (1 MB).
	maxResponseBody = 1 << 20

	// noTransactionsMessage marks the valid empty result: an address with
	// no history is not an error.
	noTransactionsMessage = "No transactions found"
)

// apiResponse is the standard Etherscan envelope. Result is raw because
// it is a string on errors and an array for list endpoints.
type apiResponse struct {
	Status  string          `json:"status"`  // "1" success, "0" error
	Message string          `json:"message"` // "OK" or error message
	Result  json.RawMessage `json:"result"`
}

// txRecord is one transaction as Etherscan returns it, all fields as
// decimal strings.
type txRecord struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	TimeStamp   string `json:"timeStamp"`
	BlockNumber string `json:"blockNumber"`
	Nonce       string `json:"nonce"`
	GasUsed     string `json:"gasUsed"`
	GasPrice    string `json:"gasPrice"`
	IsError     string `json:"isError"`
}

// Direction marks a transaction relative to the queried address.
type Direction string

const (
	// DirectionSent means the queried address was the sender.
	DirectionSent Direction = "sent"
	// DirectionReceived means the queried address was the recipient.
	DirectionReceived Direction = "received"
)

// Transaction is one confirmed transaction in an address's history.
type Transaction struct {
	Hash      string
	From      string
	To        string
	Value     *big.Int // in wei
	Fee       *big.Int // gasUsed * gasPrice in wei
	Timestamp time.Time
	Block     uint64
	Nonce     uint64
	Direction Direction
	Failed    bool // reverted on chain
}

// Client queries the Etherscan API. Requests are rate limited to the
// free-tier allowance.
type Client struct {
	apiKey      string
	baseURL     string
	chainID     string
	httpClient  *http.Client
	rateLimiter *chain.RateLimiter
}

// ClientOptions overrides client defaults, mainly for tests.
type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	ChainID    string
}

// NewClient creates an Etherscan client. The API key is required.
func NewClient(apiKey string, opts *ClientOptions) (*Client, error) {
	if apiKey == "" {
		return nil, walleterr.WithSuggestion(
			walleterr.Wrap(walleterr.ErrConfigInvalid, "etherscan API key is required"),
			"set history.api_key in the config file or TIDE_ETHERSCAN_API_KEY",
		)
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		chainID: DefaultChainID,
		httpClient: &http.Client{
			Timeout: httpTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		rateLimiter: chain.NewRateLimiter(5, 5), // Etherscan free tier
	}

	if opts != nil {
		if opts.BaseURL != "" {
			c.baseURL = opts.BaseURL
		}
		if opts.HTTPClient != nil {
			c.httpClient = opts.HTTPClient
		}
		if opts.ChainID != "" {
			c.chainID = opts.ChainID
		}
	}

	return c, nil
}

// GetHistory returns the most recent transactions for an address, newest
// first. An address with no history returns an empty slice, not an error.
func (c *Client) GetHistory(ctx context.Context, address string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", address)
	params.Set("startblock", "0")
	params.Set("endblock", "99999999")
	params.Set("page", "1")
	params.Set("offset", fmt.Sprintf("%d", limit))
	params.Set("sort", "desc")

	result, empty, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, err
	}
	if empty {
		return []Transaction{}, nil
	}

	var records []txRecord
	if err := json.Unmarshal(result, &records); err != nil {
		return nil, walleterr.Wrap(walleterr.ErrTransport, "parsing transaction list")
	}

	txs := make([]Transaction, 0, len(records))
	for _, rec := range records {
		tx, err := rec.toTransaction(address)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return txs, nil
}

// GetBalance returns the confirmed balance of an address in wei.
func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "balance")
	params.Set("address", address)
	params.Set("tag", "latest")

	result, _, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, err
	}

	var value string
	if err := json.Unmarshal(result, &value); err != nil {
		return nil, walleterr.Wrap(walleterr.ErrTransport, "parsing balance")
	}

	balance, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, walleterr.Wrap(walleterr.ErrTransport, "invalid balance %q", value)
	}
	return balance, nil
}

// doRequest performs one rate-limited API call. The empty flag reports
// the no-transactions case, which the API encodes as an error status.
func (c *Client) doRequest(ctx context.Context, params url.Values) (json.RawMessage, bool, error) {
	if err := c.rateLimiter.Wait(ctx, "etherscan"); err != nil {
		return nil, false, walleterr.Wrap(err, "rate limiter")
	}

	// The v2 API requires chainid on every request.
	params.Set("chainid", c.chainID)

	reqURL := fmt.Sprintf("%s/api?%s", c.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, walleterr.Wrap(walleterr.ErrTransport, "creating request")
	}

	// API key travels in a header so it never lands in proxy or server
	// logs via the URL.
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, false, walleterr.Wrap(walleterr.ErrTransport, "querying etherscan")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, false, walleterr.Wrap(walleterr.ErrTransport, "reading response")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, false, walleterr.WithSuggestion(
			walleterr.Wrap(walleterr.ErrRPC, "etherscan rate limit exceeded"),
			"wait a moment and try again",
		)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, false, walleterr.WithDetails(
			walleterr.Wrap(walleterr.ErrTransport, "etherscan request failed"),
			map[string]string{"status": resp.Status},
		)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, false, walleterr.Wrap(walleterr.ErrTransport, "parsing response")
	}

	if apiResp.Status != "1" {
		if apiResp.Message == noTransactionsMessage {
			return nil, true, nil
		}
		return nil, false, walleterr.WithDetails(
			walleterr.Wrap(walleterr.ErrRPC, "etherscan rejected the request"),
			map[string]string{
				"message": apiResp.Message,
				"result":  truncate(string(apiResp.Result), 256),
			},
		)
	}

	return apiResp.Result, false, nil
}

// toTransaction converts a raw record, classifying direction relative to
// the queried address.
func (r txRecord) toTransaction(queried string) (Transaction, error) {
	value, ok := new(big.Int).SetString(r.Value, 10)
	if !ok {
		return Transaction{}, walleterr.Wrap(walleterr.ErrTransport, "invalid value %q in tx %s", r.Value, r.Hash)
	}

	ts, err := strconv.ParseInt(r.TimeStamp, 10, 64)
	if err != nil {
		return Transaction{}, walleterr.Wrap(walleterr.ErrTransport, "invalid timestamp in tx %s", r.Hash)
	}
	block, err := strconv.ParseUint(r.BlockNumber, 10, 64)
	if err != nil {
		return Transaction{}, walleterr.Wrap(walleterr.ErrTransport, "invalid block number in tx %s", r.Hash)
	}
	nonce, err := strconv.ParseUint(r.Nonce, 10, 64)
	if err != nil {
		return Transaction{}, walleterr.Wrap(walleterr.ErrTransport, "invalid nonce in tx %s", r.Hash)
	}

	fee := new(big.Int)
	gasUsed, okUsed := new(big.Int).SetString(r.GasUsed, 10)
	gasPrice, okPrice := new(big.Int).SetString(r.GasPrice, 10)
	if okUsed && okPrice {
		fee.Mul(gasUsed, gasPrice)
	}

	direction := DirectionReceived
	if strings.EqualFold(r.From, queried) {
		direction = DirectionSent
	}

	return Transaction{
		Hash:      r.Hash,
		From:      r.From,
		To:        r.To,
		Value:     value,
		Fee:       fee,
		Timestamp: time.Unix(ts, 0).UTC(),
		Block:     block,
		Nonce:     nonce,
		Direction: direction,
		Failed:    r.IsError == "1",
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
