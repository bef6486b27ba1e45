package etherscan

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

const testAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-key", &ClientOptions{
		BaseURL: server.URL,
		ChainID: "11155111",
	})
	require.NoError(t, err)
	return client, server
}

func historyCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient("", nil)
	require.Error(t, err)
	assert.True(t, walleterr.Is(err, walleterr.ErrConfigInvalid))
}

func TestGetHistory(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "account", q.Get("module"))
		assert.Equal(t, "txlist", q.Get("action"))
		assert.Equal(t, testAddress, q.Get("address"))
		assert.Equal(t, "desc", q.Get("sort"))
		assert.Equal(t, "2", q.Get("offset"))
		assert.Equal(t, "11155111", q.Get("chainid"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		err := json.NewEncoder(w).Encode(map[string]any{
			"status":  "1",
			"message": "OK",
			"result": []map[string]string{
				{
					"hash":        "0xaaa",
					"from":        "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
					"to":          "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
					"value":       "1000000000000000000",
					"timeStamp":   "1700000000",
					"blockNumber": "18500000",
					"nonce":       "4",
					"gasUsed":     "21000",
					"gasPrice":    "1000000000",
					"isError":     "0",
				},
				{
					"hash":        "0xbbb",
					"from":        "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
					"to":          "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
					"value":       "500",
					"timeStamp":   "1690000000",
					"blockNumber": "18000000",
					"nonce":       "9",
					"gasUsed":     "21000",
					"gasPrice":    "2000000000",
					"isError":     "1",
				},
			},
		})
		assert.NoError(t, err)
	})

	txs, err := client.GetHistory(historyCtx(t), testAddress, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	sent := txs[0]
	assert.Equal(t, "0xaaa", sent.Hash)
	assert.Equal(t, DirectionSent, sent.Direction)
	assert.Equal(t, big.NewInt(1_000_000_000_000_000_000), sent.Value)
	assert.Equal(t, big.NewInt(21000*1_000_000_000), sent.Fee)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), sent.Timestamp)
	assert.Equal(t, uint64(18500000), sent.Block)
	assert.Equal(t, uint64(4), sent.Nonce)
	assert.False(t, sent.Failed)

	received := txs[1]
	assert.Equal(t, DirectionReceived, received.Direction)
	assert.True(t, received.Failed)
}

func TestGetHistoryEmptyIsNotError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		// Etherscan encodes "no history" as an error status.
		err := json.NewEncoder(w).Encode(map[string]any{
			"status":  "0",
			"message": "No transactions found",
			"result":  []any{},
		})
		assert.NoError(t, err)
	})

	txs, err := client.GetHistory(historyCtx(t), testAddress, 10)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestGetHistoryAPIError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		err := json.NewEncoder(w).Encode(map[string]any{
			"status":  "0",
			"message": "NOTOK",
			"result":  "Invalid API Key",
		})
		assert.NoError(t, err)
	})

	_, err := client.GetHistory(historyCtx(t), testAddress, 10)
	require.Error(t, err)
	assert.True(t, walleterr.Is(err, walleterr.ErrRPC))
	assert.Contains(t, err.Error(), "NOTOK")
}

func TestGetHistoryRateLimited(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.GetHistory(historyCtx(t), testAddress, 10)
	require.Error(t, err)
	assert.True(t, walleterr.Is(err, walleterr.ErrRPC))
}

func TestGetHistoryHTTPErrorIsTransport(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	})

	_, err := client.GetHistory(historyCtx(t), testAddress, 10)
	require.Error(t, err)
	assert.True(t, walleterr.Is(err, walleterr.ErrTransport))
}

func TestGetHistoryDefaultLimit(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "25", r.URL.Query().Get("offset"))
		err := json.NewEncoder(w).Encode(map[string]any{
			"status": "1", "message": "OK", "result": []any{},
		})
		assert.NoError(t, err)
	})

	txs, err := client.GetHistory(historyCtx(t), testAddress, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestGetBalance(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "balance", q.Get("action"))
		assert.Equal(t, testAddress, q.Get("address"))

		err := json.NewEncoder(w).Encode(map[string]any{
			"status": "1", "message": "OK", "result": "1000000000000000000",
		})
		assert.NoError(t, err)
	})

	balance, err := client.GetBalance(historyCtx(t), testAddress)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000_000_000_000_000), balance)
}
