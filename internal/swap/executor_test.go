// internal/swap/executor_test.go
package swap

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/dex-sniper/internal/wallet"
)

type fakeChain struct {
	sig        solana.Signature
	sendErr    error
	confirmErr error
	sent       *solana.Transaction
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.sent = tx
	return f.sig, f.sendErr
}

func (f *fakeChain) WaitForConfirmation(_ context.Context, _ solana.Signature) error {
	return f.confirmErr
}

func testWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.New(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	return w
}

// unsignedTxBase64 builds a minimal serialized transaction with the wallet
// as fee payer, standing in for the routing service's response.
func unsignedTxBase64(t *testing.T, w *wallet.Wallet) string {
	t.Helper()
	tx := &solana.Transaction{
		Message: solana.Message{
			Header:          solana.MessageHeader{NumRequiredSignatures: 1},
			AccountKeys:     []solana.PublicKey{w.PublicKey},
			RecentBlockhash: solana.Hash{},
		},
	}
	data, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(data)
}

func TestDryRunSwapIsSideEffectFree(t *testing.T) {
	executor := NewExecutor(Options{
		DryRun:   true,
		QuoteURL: "http://127.0.0.1:1", // would fail if ever contacted
		SwapURL:  "http://127.0.0.1:1",
	}, nil, nil, zaptest.NewLogger(t))

	txID, err := executor.Swap(context.Background(), "mint-in", "mint-out", 1_000_000)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(txID, "dry-run-"))
}

func TestDryRunSwapGeneratesUniqueIDs(t *testing.T) {
	executor := NewExecutor(Options{DryRun: true}, nil, nil, zaptest.NewLogger(t))

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		txID, err := executor.Swap(context.Background(), "a", "b", 1)
		require.NoError(t, err)
		require.False(t, seen[txID], "sentinel tx id reused: %s", txID)
		seen[txID] = true
	}
}

func TestSwapNoRoute(t *testing.T) {
	quoteServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"routes": []}`))
	}))
	defer quoteServer.Close()

	executor := NewExecutor(Options{
		QuoteURL:    quoteServer.URL,
		SlippageBps: 100,
	}, &fakeChain{}, testWallet(t), zaptest.NewLogger(t))

	_, err := executor.Swap(context.Background(), "mint-in", "mint-out", 1_000_000)
	require.True(t, errors.Is(err, ErrNoRoute))
}

func TestSwapSelectsGreatestOutput(t *testing.T) {
	w := testWallet(t)

	quoteServer := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1000000", r.URL.Query().Get("amount"))
		require.Equal(t, "100", r.URL.Query().Get("slippageBps"))
		_, _ = rw.Write([]byte(`{"routes": [
			{"outAmount": "500", "marker": "first"},
			{"outAmount": "900", "marker": "best"},
			{"outAmount": "900", "marker": "tied"},
			{"outAmount": "700", "marker": "third"}
		]}`))
	}))
	defer quoteServer.Close()

	var chosenMarker string
	swapServer := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var req struct {
			Route struct {
				Marker string `json:"marker"`
			} `json:"route"`
			UserPublicKey string `json:"userPublicKey"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		chosenMarker = req.Route.Marker
		require.Equal(t, w.PublicKey.String(), req.UserPublicKey)

		_ = json.NewEncoder(rw).Encode(map[string]string{
			"swapTransaction": unsignedTxBase64(t, w),
		})
	}))
	defer swapServer.Close()

	chain := &fakeChain{sig: solana.Signature{1, 2, 3}}
	executor := NewExecutor(Options{
		QuoteURL:    quoteServer.URL,
		SwapURL:     swapServer.URL,
		SlippageBps: 100,
	}, chain, w, zaptest.NewLogger(t))

	txID, err := executor.Swap(context.Background(), "mint-in", "mint-out", 1_000_000)
	require.NoError(t, err)
	require.Equal(t, chain.sig.String(), txID)
	// Ties keep the first seen, so "best" beats "tied".
	require.Equal(t, "best", chosenMarker)
	require.NotNil(t, chain.sent)
}

func TestSwapSubmissionFailure(t *testing.T) {
	w := testWallet(t)

	quoteServer := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte(`{"routes": [{"outAmount": "500"}]}`))
	}))
	defer quoteServer.Close()

	swapServer := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusBadGateway)
	}))
	defer swapServer.Close()

	executor := NewExecutor(Options{
		QuoteURL:    quoteServer.URL,
		SwapURL:     swapServer.URL,
		SlippageBps: 100,
	}, &fakeChain{}, w, zaptest.NewLogger(t))

	_, err := executor.Swap(context.Background(), "mint-in", "mint-out", 1_000_000)
	require.Error(t, err)

	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
}

func TestSwapSendFailure(t *testing.T) {
	w := testWallet(t)

	quoteServer := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte(`{"routes": [{"outAmount": "500"}]}`))
	}))
	defer quoteServer.Close()

	swapServer := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(rw).Encode(map[string]string{
			"swapTransaction": unsignedTxBase64(t, w),
		})
	}))
	defer swapServer.Close()

	chain := &fakeChain{sendErr: errors.New("blockhash not found")}
	executor := NewExecutor(Options{
		QuoteURL:    quoteServer.URL,
		SwapURL:     swapServer.URL,
		SlippageBps: 100,
	}, chain, w, zaptest.NewLogger(t))

	_, err := executor.Swap(context.Background(), "mint-in", "mint-out", 1_000_000)

	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	require.Equal(t, "send", subErr.Stage)
}
