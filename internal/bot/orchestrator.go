// internal/bot/orchestrator.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/dex-sniper/internal/events"
	"github.com/rovshanmuradov/dex-sniper/internal/market"
	"github.com/rovshanmuradov/dex-sniper/internal/storage"
	"github.com/rovshanmuradov/dex-sniper/internal/storage/models"
	"github.com/rovshanmuradov/dex-sniper/internal/swap"
)

// CandidateSource surfaces tradeable pairs from the market feed.
type CandidateSource interface {
	FetchCandidates(ctx context.Context) ([]market.Opportunity, error)
}

// Screener filters opportunities by keyword and safety scans.
type Screener interface {
	IsCandidate(opp market.Opportunity) bool
	VerifySafety(ctx context.Context, tokenMint string) bool
}

// Swapper executes a swap and returns the confirmed transaction id.
type Swapper interface {
	Swap(ctx context.Context, inputMint, outputMint string, amount uint64) (string, error)
}

// MonitorSpawner starts an independent watcher for an open position.
type MonitorSpawner interface {
	Spawn(ctx context.Context, pos *models.Position)
}

// BalanceFunc returns the settlement asset balance in lamports.
type BalanceFunc func(ctx context.Context) (uint64, error)

// OrchestratorConfig carries the tick's trading parameters.
type OrchestratorConfig struct {
	BuyAmountSol   float64
	MaxDailyTrades int
	MinMarketCap   float64
}

// Orchestrator runs the discovery-to-buy cycle. RunTick is never invoked
// concurrently with itself: the runner calls it synchronously on a single
// schedule.
type Orchestrator struct {
	cfg      OrchestratorConfig
	store    storage.Store
	feed     CandidateSource
	screener Screener
	swaps    Swapper
	monitors MonitorSpawner
	balance  BalanceFunc
	events   events.Sink
	logger   *zap.Logger

	// Daily cap state, owned exclusively by the tick.
	tradesToday int
	counterDay  time.Time

	now func() time.Time
}

func NewOrchestrator(
	cfg OrchestratorConfig,
	store storage.Store,
	feed CandidateSource,
	screener Screener,
	swaps Swapper,
	monitors MonitorSpawner,
	balance BalanceFunc,
	sink events.Sink,
	logger *zap.Logger,
) *Orchestrator {
	if sink == nil {
		sink = events.Discard
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		feed:     feed,
		screener: screener,
		swaps:    swaps,
		monitors: monitors,
		balance:  balance,
		events:   sink,
		logger:   logger.Named("orchestrator"),
		now:      time.Now,
	}
}

// RunTick executes one full trading cycle. Errors abort the tick; the next
// scheduled tick proceeds normally.
func (o *Orchestrator) RunTick(ctx context.Context) error {
	balance, err := o.balance(ctx)
	if err != nil {
		return fmt.Errorf("balance check: %w", err)
	}
	buyLamports := swap.SolToLamports(o.cfg.BuyAmountSol)
	if balance < buyLamports {
		o.logger.Warn("insufficient balance for a trade, skipping tick",
			zap.Uint64("balance_lamports", balance),
			zap.Uint64("required_lamports", buyLamports))
		return nil
	}

	candidates, err := o.feed.FetchCandidates(ctx)
	if err != nil {
		return fmt.Errorf("fetch candidates: %w", err)
	}

	tracked, err := o.store.ListAllAddresses(ctx)
	if err != nil {
		return fmt.Errorf("list tracked pairs: %w", err)
	}
	trackedSet := make(map[string]struct{}, len(tracked))
	for _, address := range tracked {
		trackedSet[address] = struct{}{}
	}

	var selected []market.Opportunity
	for _, opp := range candidates {
		if _, seen := trackedSet[opp.PairAddress]; seen {
			continue
		}
		if !o.screener.IsCandidate(opp) {
			continue
		}
		if opp.MarketCap < o.cfg.MinMarketCap {
			continue
		}
		selected = append(selected, opp)
	}

	allowance := o.dailyAllowance()
	if allowance == 0 {
		o.logger.Info("daily trade cap reached, skipping buys",
			zap.Int("max_daily_trades", o.cfg.MaxDailyTrades))
		return nil
	}
	if len(selected) > allowance {
		// Feed order, simple truncation. Not a ranking.
		selected = selected[:allowance]
	}

	for _, opp := range selected {
		o.tryBuy(ctx, opp, buyLamports)
	}
	return nil
}

// tryBuy screens one opportunity and opens the position. Failures forfeit
// the opportunity for this tick only.
func (o *Orchestrator) tryBuy(ctx context.Context, opp market.Opportunity, buyLamports uint64) {
	logger := o.logger.With(
		zap.String("pair_address", opp.PairAddress),
		zap.String("token_mint", opp.TokenMint),
		zap.String("symbol", opp.Symbol),
	)

	if !o.screener.VerifySafety(ctx, opp.TokenMint) {
		logger.Info("safety verification failed, skipping opportunity")
		return
	}

	txID, err := o.swaps.Swap(ctx, swap.WrappedSolMint, opp.TokenMint, buyLamports)
	if err != nil {
		logger.Error("buy swap failed, skipping opportunity", zap.Error(err))
		return
	}

	pos := &models.Position{
		Address:    opp.PairAddress,
		TokenMint:  opp.TokenMint,
		Symbol:     opp.Symbol,
		EntryPrice: opp.PriceUSD,
		Amount:     o.cfg.BuyAmountSol,
		Status:     models.StatusOpen,
	}
	if err := o.store.InsertPosition(ctx, pos); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			logger.Warn("position already tracked, stale dedup set", zap.String("tx_id", txID))
		} else {
			logger.Error("failed to persist position", zap.String("tx_id", txID), zap.Error(err))
		}
		return
	}

	o.monitors.Spawn(ctx, pos)

	entry := &models.TradeLedgerEntry{
		TxID:        txID,
		PairAddress: opp.PairAddress,
		Direction:   models.DirectionBuy,
		Amount:      o.cfg.BuyAmountSol,
		Price:       opp.PriceUSD,
	}
	if err := o.store.AppendLedgerEntry(ctx, entry); err != nil {
		logger.Error("failed to append buy ledger entry", zap.String("tx_id", txID), zap.Error(err))
	}

	o.tradesToday++
	_ = o.events.Publish(events.NewPositionOpened(
		opp.PairAddress, opp.TokenMint, opp.Symbol, opp.PriceUSD, o.cfg.BuyAmountSol, txID))
	logger.Info("🎯 position opened",
		zap.String("tx_id", txID),
		zap.Float64("entry_price", opp.PriceUSD),
		zap.Float64("amount_sol", o.cfg.BuyAmountSol))
}

// dailyAllowance returns how many buys remain today, rolling the counter
// over on UTC calendar day boundaries.
func (o *Orchestrator) dailyAllowance() int {
	today := o.now().UTC().Truncate(24 * time.Hour)
	if !today.Equal(o.counterDay) {
		o.counterDay = today
		o.tradesToday = 0
	}
	remaining := o.cfg.MaxDailyTrades - o.tradesToday
	if remaining < 0 {
		return 0
	}
	return remaining
}
