// internal/market/client.go
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	solanaChain     = "solana"
	requestTimeout  = 10 * time.Second
	requestsPerMin  = 300
	defaultBackoff  = 500 * time.Millisecond
	candidatesQuery = "SOL"
)

// Client talks to the pair listing feed. Every outbound request passes the
// rate limiter; listing fetches are retried with linear backoff.
type Client struct {
	baseURL      string
	client       *http.Client
	logger       *zap.Logger
	limiter      *rate.Limiter
	maxTries     uint
	backoffBase  time.Duration
	minLiquidity float64
	minVolume24h float64
}

// Options configures a feed client.
type Options struct {
	BaseURL      string
	Retries      int
	BackoffBase  time.Duration
	MinLiquidity float64
	MinVolume24h float64
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	base := opts.BackoffBase
	if base <= 0 {
		base = defaultBackoff
	}
	tries := uint(1)
	if opts.Retries > 0 {
		tries = uint(opts.Retries)
	}
	return &Client{
		baseURL: opts.BaseURL,
		client: &http.Client{
			Timeout: requestTimeout,
		},
		logger:       logger.Named("market"),
		limiter:      rate.NewLimiter(rate.Every(time.Minute/requestsPerMin), 1),
		maxTries:     tries,
		backoffBase:  base,
		minLiquidity: opts.MinLiquidity,
		minVolume24h: opts.MinVolume24h,
	}
}

// linearBackOff waits base × attempt between tries.
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.base
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// FetchCandidates returns feed pairs on the Solana chain that clear the
// minimum liquidity and 24h volume thresholds. The final error after all
// retries is propagated; the caller decides whether it is fatal.
func (c *Client) FetchCandidates(ctx context.Context) ([]Opportunity, error) {
	reqURL := fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(candidatesQuery))

	notify := func(err error, duration time.Duration) {
		c.logger.Warn("feed request failed, retrying",
			zap.Duration("backoff", duration),
			zap.Error(err))
	}

	operation := func() (*PairsResponse, error) {
		return c.doRequest(ctx, reqURL)
	}

	response, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&linearBackOff{base: c.backoffBase}),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(notify))
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	opportunities := make([]Opportunity, 0, len(response.Pairs))
	for i := range response.Pairs {
		pair := &response.Pairs[i]
		if pair.ChainID != solanaChain {
			continue
		}
		if pair.Liquidity.USD < c.minLiquidity || pair.Volume.H24 < c.minVolume24h {
			continue
		}
		priceUSD, err := strconv.ParseFloat(pair.PriceUsd, 64)
		if err != nil {
			c.logger.Debug("skipping pair with unparseable price",
				zap.String("pair_address", pair.PairAddress),
				zap.String("price_usd", pair.PriceUsd))
			continue
		}
		opportunities = append(opportunities, Opportunity{
			PairAddress:  pair.PairAddress,
			TokenMint:    pair.BaseToken.Address,
			Symbol:       pair.BaseToken.Symbol,
			Name:         pair.BaseToken.Name,
			PriceUSD:     priceUSD,
			LiquidityUSD: pair.Liquidity.USD,
			Volume24h:    pair.Volume.H24,
			MarketCap:    pair.Fdv,
		})
	}

	c.logger.Info("fetched candidates",
		zap.Int("total", len(response.Pairs)),
		zap.Int("after_filter", len(opportunities)))

	return opportunities, nil
}

// PairPrice returns the current USD price for a single pair. Not retried:
// the position monitor simply skips a failed reading.
func (c *Client) PairPrice(ctx context.Context, pairAddress string) (float64, error) {
	reqURL := fmt.Sprintf("%s/pairs/%s/%s", c.baseURL, solanaChain, pairAddress)

	response, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return 0, fmt.Errorf("pair price: %w", err)
	}
	if len(response.Pairs) == 0 {
		return 0, fmt.Errorf("pair not found: %s", pairAddress)
	}

	price, err := strconv.ParseFloat(response.Pairs[0].PriceUsd, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price for %s: %w", pairAddress, err)
	}
	return price, nil
}

func (c *Client) doRequest(ctx context.Context, reqURL string) (*PairsResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var response PairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &response, nil
}
