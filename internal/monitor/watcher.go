// internal/monitor/watcher.go
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/dex-sniper/internal/events"
	"github.com/rovshanmuradov/dex-sniper/internal/storage"
	"github.com/rovshanmuradov/dex-sniper/internal/storage/models"
	"github.com/rovshanmuradov/dex-sniper/internal/swap"
)

const (
	priceFetchTimeout = 10 * time.Second

	// A confirmed sell with an open row would be re-sold after a restart,
	// so the closed-status write gets a few attempts before giving up.
	statusWriteAttempts = 3
	statusWriteDelay    = 2 * time.Second
)

// PriceFetcher returns the current price for a pair.
type PriceFetcher interface {
	PairPrice(ctx context.Context, pairAddress string) (float64, error)
}

// Swapper executes a swap and returns the confirmed transaction id.
type Swapper interface {
	Swap(ctx context.Context, inputMint, outputMint string, amount uint64) (string, error)
}

// Watcher polls the price of one open position and sells it once the
// stop-loss or take-profit bound is crossed. Watchers share no state with
// each other; the store is the only common ground.
type Watcher struct {
	pairAddress string
	tokenMint   string
	entryPrice  float64

	stopLossPct   float64
	takeProfitPct float64
	interval      time.Duration

	store  storage.Store
	prices PriceFetcher
	swaps  Swapper
	events events.Sink
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	statusRetryDelay time.Duration

	mu    sync.Mutex
	fired bool
}

// WatcherConfig carries the per-position parameters and shared collaborators.
type WatcherConfig struct {
	Position      *models.Position
	StopLossPct   float64
	TakeProfitPct float64
	Interval      time.Duration
	Store         storage.Store
	Prices        PriceFetcher
	Swaps         Swapper
	Events        events.Sink
	Logger        *zap.Logger
}

func NewWatcher(parent context.Context, cfg *WatcherConfig) *Watcher {
	ctx, cancel := context.WithCancel(parent)
	sink := cfg.Events
	if sink == nil {
		sink = events.Discard
	}
	return &Watcher{
		pairAddress:   cfg.Position.Address,
		tokenMint:     cfg.Position.TokenMint,
		entryPrice:    cfg.Position.EntryPrice,
		stopLossPct:   cfg.StopLossPct,
		takeProfitPct: cfg.TakeProfitPct,
		interval:      cfg.Interval,
		store:         cfg.Store,
		prices:        cfg.Prices,
		swaps:         cfg.Swaps,
		events:        sink,
		logger: cfg.Logger.Named("watcher").With(
			zap.String("pair_address", cfg.Position.Address),
			zap.String("token_mint", cfg.Position.TokenMint),
		),
		statusRetryDelay: statusWriteDelay,
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Run polls until an exit fires or the watcher is cancelled. It returns when
// watching for this position is over.
func (w *Watcher) Run() {
	w.logger.Info("watching position",
		zap.Float64("entry_price", w.entryPrice),
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("watcher cancelled")
			return
		case <-ticker.C:
			if w.poll() {
				return
			}
		}
	}
}

// Stop cancels the watcher.
func (w *Watcher) Stop() {
	w.cancel()
}

// poll takes one price reading and reports whether watching is finished.
// A failed read never triggers an exit.
func (w *Watcher) poll() bool {
	ctx, cancel := context.WithTimeout(w.ctx, priceFetchTimeout)
	defer cancel()

	price, err := w.prices.PairPrice(ctx, w.pairAddress)
	if err != nil {
		w.logger.Warn("price fetch failed, staying in watch state", zap.Error(err))
		return false
	}

	return w.evaluate(price)
}

// evaluate checks the exit bounds for one reading. Stop-loss is checked
// before take-profit so the outcome is deterministic when a single reading
// satisfies both.
func (w *Watcher) evaluate(price float64) bool {
	stopLoss := w.entryPrice * (1 - w.stopLossPct/100)
	takeProfit := w.entryPrice * (1 + w.takeProfitPct/100)

	var reason string
	switch {
	case price <= stopLoss:
		reason = "stop-loss"
	case price >= takeProfit:
		reason = "take-profit"
	default:
		return false
	}

	w.mu.Lock()
	if w.fired {
		w.mu.Unlock()
		return true
	}
	w.fired = true
	w.mu.Unlock()

	w.logger.Info("exit triggered",
		zap.String("reason", reason),
		zap.Float64("price", price),
		zap.Float64("entry_price", w.entryPrice))

	if w.executeExit(price, reason) {
		w.cancel()
		return true
	}

	// The sell did not go through; the position is still ours, so resume
	// watching rather than dropping it from tracking.
	w.mu.Lock()
	w.fired = false
	w.mu.Unlock()
	return false
}

// executeExit re-reads the position and performs the sell. Returns true when
// the position is no longer open (sold now or already closed elsewhere).
func (w *Watcher) executeExit(price float64, reason string) bool {
	// Detach from the watcher context: a shutdown mid-exit should not
	// abandon a half-done close.
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	pos, err := w.store.GetPosition(ctx, w.pairAddress)
	if errors.Is(err, storage.ErrNotFound) {
		w.logger.Error("position missing from store at exit, aborting sell")
		return true
	}
	if err != nil {
		w.logger.Error("position lookup failed at exit", zap.Error(err))
		return false
	}
	if pos.Status != models.StatusOpen {
		w.logger.Info("position already closed, nothing to do",
			zap.String("status", string(pos.Status)))
		return true
	}

	txID, err := w.swaps.Swap(ctx, w.tokenMint, swap.WrappedSolMint, swap.SolToLamports(pos.Amount))
	if err != nil {
		w.logger.Error("exit swap failed", zap.Error(err))
		return false
	}

	if err := w.markClosed(ctx); err != nil {
		// The sell went through but the row is still open: a restart
		// would rehydrate this watcher and sell again. Flag it loudly.
		w.logger.Error("position sold but still open in store, manual reconciliation required",
			zap.String("tx_id", txID),
			zap.Error(err))
		return true
	}

	entry := &models.TradeLedgerEntry{
		TxID:        txID,
		PairAddress: w.pairAddress,
		Direction:   models.DirectionSell,
		Amount:      pos.Amount,
		Price:       price,
	}
	if err := w.store.AppendLedgerEntry(ctx, entry); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			w.logger.Warn("sell ledger entry already recorded", zap.String("tx_id", txID))
		} else {
			w.logger.Error("failed to append sell ledger entry",
				zap.String("tx_id", txID),
				zap.Error(err))
		}
		return true
	}

	_ = w.events.Publish(events.NewPositionClosed(
		w.pairAddress, w.tokenMint, reason, w.entryPrice, price, txID))
	w.logger.Info("position closed",
		zap.String("tx_id", txID),
		zap.Float64("exit_price", price))
	return true
}

// markClosed writes the closed status, retrying transient store failures so
// a confirmed sell is not left rehydratable.
func (w *Watcher) markClosed(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= statusWriteAttempts; attempt++ {
		if err = w.store.UpdateStatus(ctx, w.pairAddress, models.StatusClosed); err == nil {
			return nil
		}
		if attempt == statusWriteAttempts {
			break
		}
		w.logger.Warn("closed-status write failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return err
		case <-time.After(w.statusRetryDelay):
		}
	}
	return err
}
