// internal/screen/screener.go
package screen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/dex-sniper/internal/market"
)

const scanTimeout = 10 * time.Second

// Screener decides whether an opportunity is worth trading: a keyword match
// first, then two independent safety scans.
type Screener struct {
	client       *http.Client
	logger       *zap.Logger
	keywords     []string
	maxRiskScore int
	rugScanURL   string
	honeypotURL  string
}

// Options configures a Screener.
type Options struct {
	Keywords     []string
	MaxRiskScore int
	RugScanURL   string
	HoneypotURL  string
}

func NewScreener(opts Options, logger *zap.Logger) *Screener {
	keywords := make([]string, 0, len(opts.Keywords))
	for _, kw := range opts.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return &Screener{
		client: &http.Client{
			Timeout: scanTimeout,
		},
		logger:       logger.Named("screen"),
		keywords:     keywords,
		maxRiskScore: opts.MaxRiskScore,
		rugScanURL:   opts.RugScanURL,
		honeypotURL:  opts.HoneypotURL,
	}
}

// IsCandidate reports whether the token's symbol or name contains any
// configured keyword. A heuristic classifier only: keyword squatting makes
// false positives (and negatives) routine.
func (s *Screener) IsCandidate(opp market.Opportunity) bool {
	symbol := strings.ToLower(opp.Symbol)
	name := strings.ToLower(opp.Name)
	for _, kw := range s.keywords {
		if strings.Contains(symbol, kw) || strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// rugReport is the risk scanner's verdict for a token mint.
type rugReport struct {
	Score  int  `json:"score"`
	Rugged bool `json:"rugged"`
}

// honeypotReport is the honeypot detector's verdict.
type honeypotReport struct {
	HoneypotResult struct {
		IsHoneypot bool `json:"isHoneypot"`
	} `json:"honeypotResult"`
}

// VerifySafety runs both safety scans concurrently and accepts the token
// only if both signal safe. Any scan failure means unsafe: uncertainty is
// treated the same as a bad verdict, and the scan is never retried.
func (s *Screener) VerifySafety(ctx context.Context, tokenMint string) bool {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	var rug rugReport
	var honeypot honeypotReport

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reqURL := fmt.Sprintf("%s/%s/report", s.rugScanURL, tokenMint)
		return s.getJSON(gCtx, reqURL, &rug)
	})

	g.Go(func() error {
		reqURL := fmt.Sprintf("%s?address=%s", s.honeypotURL, url.QueryEscape(tokenMint))
		return s.getJSON(gCtx, reqURL, &honeypot)
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn("safety scan failed, treating token as unsafe",
			zap.String("token_mint", tokenMint),
			zap.Error(err))
		return false
	}

	if rug.Rugged || honeypot.HoneypotResult.IsHoneypot {
		s.logger.Info("token flagged by safety scan",
			zap.String("token_mint", tokenMint),
			zap.Bool("rugged", rug.Rugged),
			zap.Bool("honeypot", honeypot.HoneypotResult.IsHoneypot))
		return false
	}

	if rug.Score >= s.maxRiskScore {
		s.logger.Info("token risk score above threshold",
			zap.String("token_mint", tokenMint),
			zap.Int("score", rug.Score),
			zap.Int("max", s.maxRiskScore))
		return false
	}

	return true
}

func (s *Screener) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
