// internal/market/client_test.go
package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func feedResponse() PairsResponse {
	return PairsResponse{
		SchemaVersion: "1.0.0",
		Pairs: []PairInfo{
			{
				ChainID:     "solana",
				DexID:       "raydium",
				PairAddress: "pair-liquid",
				BaseToken:   TokenInfo{Address: "mint-liquid", Symbol: "LQD", Name: "Liquid Coin"},
				PriceUsd:    "0.002",
				Volume:      VolumeInfo{H24: 250000},
				Liquidity:   LiquidityInfo{USD: 80000},
				Fdv:         1500000,
			},
			{
				ChainID:     "solana",
				DexID:       "raydium",
				PairAddress: "pair-thin",
				BaseToken:   TokenInfo{Address: "mint-thin", Symbol: "THN", Name: "Thin Coin"},
				PriceUsd:    "0.0001",
				Volume:      VolumeInfo{H24: 500},
				Liquidity:   LiquidityInfo{USD: 900},
				Fdv:         20000,
			},
			{
				ChainID:     "ethereum",
				DexID:       "uniswap",
				PairAddress: "pair-wrong-chain",
				BaseToken:   TokenInfo{Address: "0xabc", Symbol: "ETHX", Name: "Wrong Chain"},
				PriceUsd:    "1.0",
				Volume:      VolumeInfo{H24: 900000},
				Liquidity:   LiquidityInfo{USD: 500000},
				Fdv:         9000000,
			},
		},
	}
}

func newTestClient(t *testing.T, serverURL string, retries int) *Client {
	t.Helper()
	return NewClient(Options{
		BaseURL:      serverURL,
		Retries:      retries,
		BackoffBase:  10 * time.Millisecond,
		MinLiquidity: 10000,
		MinVolume24h: 50000,
	}, zaptest.NewLogger(t))
}

func TestFetchCandidatesFiltersThresholds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		_ = json.NewEncoder(w).Encode(feedResponse())
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 1)

	opps, err := client.FetchCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 1)
	require.Equal(t, "pair-liquid", opps[0].PairAddress)
	require.Equal(t, "mint-liquid", opps[0].TokenMint)
	require.Equal(t, 0.002, opps[0].PriceUSD)
	require.Equal(t, 1500000.0, opps[0].MarketCap)
}

func TestFetchCandidatesRetriesWithIncreasingDelay(t *testing.T) {
	var mu sync.Mutex
	var calls []time.Time

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, time.Now())
		n := len(calls)
		mu.Unlock()

		if n <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(feedResponse())
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)

	opps, err := client.FetchCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 1)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 3)

	firstDelay := calls[1].Sub(calls[0])
	secondDelay := calls[2].Sub(calls[1])
	require.GreaterOrEqual(t, secondDelay, firstDelay)
}

func TestFetchCandidatesPropagatesFinalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)

	_, err := client.FetchCandidates(context.Background())
	require.Error(t, err)
}

func TestPairPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pairs/solana/pair-liquid", r.URL.Path)
		_ = json.NewEncoder(w).Encode(PairsResponse{
			Pairs: []PairInfo{{PairAddress: "pair-liquid", PriceUsd: "0.0042"}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 1)

	price, err := client.PairPrice(context.Background(), "pair-liquid")
	require.NoError(t, err)
	require.Equal(t, 0.0042, price)
}

func TestPairPriceNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(PairsResponse{})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 1)

	_, err := client.PairPrice(context.Background(), "gone")
	require.Error(t, err)
}
