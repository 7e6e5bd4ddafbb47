// internal/swap/executor.go
package swap

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/dex-sniper/internal/wallet"
)

const swapTimeout = 30 * time.Second

// ChainClient sends signed transactions and waits for confirmation.
type ChainClient interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	WaitForConfirmation(ctx context.Context, sig solana.Signature) error
}

// Executor resolves the best route for a swap and submits it. It never
// retries: a failed swap is reported to the caller, which decides whether
// the opportunity is forfeited.
type Executor struct {
	dryRun      bool
	quoteURL    string
	swapURL     string
	slippageBps int
	client      *http.Client
	chain       ChainClient
	wallet      *wallet.Wallet
	logger      *zap.Logger
}

// Options configures an Executor.
type Options struct {
	DryRun      bool
	QuoteURL    string
	SwapURL     string
	SlippageBps int
}

func NewExecutor(opts Options, chain ChainClient, w *wallet.Wallet, logger *zap.Logger) *Executor {
	return &Executor{
		dryRun:      opts.DryRun,
		quoteURL:    opts.QuoteURL,
		swapURL:     opts.SwapURL,
		slippageBps: opts.SlippageBps,
		client: &http.Client{
			Timeout: swapTimeout,
		},
		chain:  chain,
		wallet: w,
		logger: logger.Named("swap"),
	}
}

// Swap converts amount (in the input asset's smallest units) of inputMint
// into outputMint and returns the confirmed transaction id. In dry-run mode
// no network call is made and a fresh simulated id is returned.
func (e *Executor) Swap(ctx context.Context, inputMint, outputMint string, amount uint64) (string, error) {
	if e.dryRun {
		txID := "dry-run-" + uuid.NewString()
		e.logger.Info("dry-run swap simulated",
			zap.String("input_mint", inputMint),
			zap.String("output_mint", outputMint),
			zap.Uint64("amount", amount),
			zap.String("tx_id", txID))
		return txID, nil
	}

	route, err := e.bestRoute(ctx, inputMint, outputMint, amount)
	if err != nil {
		e.logger.Error("route resolution failed",
			zap.String("input_mint", inputMint),
			zap.String("output_mint", outputMint),
			zap.Error(err))
		return "", err
	}

	sig, err := e.submit(ctx, route)
	if err != nil {
		e.logger.Error("swap submission failed",
			zap.String("input_mint", inputMint),
			zap.String("output_mint", outputMint),
			zap.Error(err))
		return "", err
	}

	e.logger.Info("swap confirmed",
		zap.String("input_mint", inputMint),
		zap.String("output_mint", outputMint),
		zap.Uint64("amount", amount),
		zap.String("signature", sig))
	return sig, nil
}

// bestRoute quotes the pair and picks the route with the strictly greatest
// output amount; ties keep the first seen.
func (e *Executor) bestRoute(ctx context.Context, inputMint, outputMint string, amount uint64) (*routeQuote, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amount, 10))
	params.Set("slippageBps", strconv.Itoa(e.slippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.quoteURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create quote request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute quote request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("quote status code %d: %s", resp.StatusCode, string(body))
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}

	if len(quote.Routes) == 0 {
		return nil, fmt.Errorf("%s -> %s for %d: %w", inputMint, outputMint, amount, ErrNoRoute)
	}

	best := &quote.Routes[0]
	bestOut := parseOutAmount(best.OutAmount)
	for i := 1; i < len(quote.Routes); i++ {
		out := parseOutAmount(quote.Routes[i].OutAmount)
		if out > bestOut {
			best = &quote.Routes[i]
			bestOut = out
		}
	}

	e.logger.Debug("route selected",
		zap.Int("routes", len(quote.Routes)),
		zap.Uint64("out_amount", bestOut))
	return best, nil
}

// submit exchanges the chosen route for a serialized transaction, signs it,
// sends it and waits for network confirmation.
func (e *Executor) submit(ctx context.Context, route *routeQuote) (string, error) {
	payload, err := json.Marshal(swapRequest{
		Route:         route.Raw,
		UserPublicKey: e.wallet.PublicKey.String(),
		WrapUnwrapSol: true,
	})
	if err != nil {
		return "", &SubmissionError{Stage: "encode", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.swapURL, bytes.NewReader(payload))
	if err != nil {
		return "", &SubmissionError{Stage: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &SubmissionError{Stage: "swap request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &SubmissionError{Stage: "swap request", Err: fmt.Errorf("status code %d: %s", resp.StatusCode, string(body))}
	}

	var swapResp swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&swapResp); err != nil {
		return "", &SubmissionError{Stage: "decode", Err: err}
	}

	rawTx, err := base64.StdEncoding.DecodeString(swapResp.SwapTransaction)
	if err != nil {
		return "", &SubmissionError{Stage: "decode transaction", Err: err}
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(rawTx))
	if err != nil {
		return "", &SubmissionError{Stage: "deserialize transaction", Err: err}
	}

	if err := e.wallet.SignTransaction(tx); err != nil {
		return "", &SubmissionError{Stage: "sign", Err: err}
	}

	sig, err := e.chain.SendTransaction(ctx, tx)
	if err != nil {
		return "", &SubmissionError{Stage: "send", Err: err}
	}

	if err := e.chain.WaitForConfirmation(ctx, sig); err != nil {
		return "", &SubmissionError{Stage: "confirm", Err: err}
	}

	return sig.String(), nil
}

func parseOutAmount(s string) uint64 {
	out, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return out
}
