// internal/bot/runner.go
package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/dex-sniper/internal/blockchain"
	"github.com/rovshanmuradov/dex-sniper/internal/config"
	"github.com/rovshanmuradov/dex-sniper/internal/events"
	"github.com/rovshanmuradov/dex-sniper/internal/export"
	"github.com/rovshanmuradov/dex-sniper/internal/market"
	"github.com/rovshanmuradov/dex-sniper/internal/monitor"
	"github.com/rovshanmuradov/dex-sniper/internal/screen"
	"github.com/rovshanmuradov/dex-sniper/internal/storage"
	"github.com/rovshanmuradov/dex-sniper/internal/storage/sqlite"
	"github.com/rovshanmuradov/dex-sniper/internal/swap"
	"github.com/rovshanmuradov/dex-sniper/internal/wallet"
)

// Runner wires the components together and drives the tick schedule.
type Runner struct {
	logger       *zap.Logger
	config       *config.Config
	store        storage.Store
	bus          *events.Bus
	registry     *monitor.Registry
	orchestrator *Orchestrator
	shutdownCh   chan os.Signal
}

func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	w, err := wallet.New(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	chain, err := blockchain.NewClient(cfg.RPCList, logger)
	if err != nil {
		return nil, fmt.Errorf("init blockchain client: %w", err)
	}

	store, err := sqlite.NewStore(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	feed := market.NewClient(market.Options{
		BaseURL:      cfg.MarketFeedURL,
		Retries:      cfg.Retries,
		MinLiquidity: cfg.Trading.MinLiquidity,
		MinVolume24h: cfg.Trading.MinVolume24h,
	}, logger)

	screener := screen.NewScreener(screen.Options{
		Keywords:     cfg.Trading.Keywords,
		MaxRiskScore: cfg.Trading.MaxRiskScore,
		RugScanURL:   cfg.RugScanURL,
		HoneypotURL:  cfg.HoneypotURL,
	}, logger)

	executor := swap.NewExecutor(swap.Options{
		DryRun:      cfg.DryRun,
		QuoteURL:    cfg.QuoteURL,
		SwapURL:     cfg.SwapURL,
		SlippageBps: cfg.SlippageBps,
	}, chain, w, logger)

	bus := events.NewBus(logger, 64)
	subscribeTradeJournal(bus, logger)

	registry := monitor.NewRegistry(&monitor.RegistryConfig{
		StopLossPct:   cfg.Trading.StopLossPercent,
		TakeProfitPct: cfg.Trading.TakeProfitPercent,
		Interval:      cfg.MonitorDelay(),
		Store:         store,
		Prices:        feed,
		Swaps:         executor,
		Events:        bus,
		Logger:        logger,
	})

	balance := func(ctx context.Context) (uint64, error) {
		return chain.GetBalance(ctx, w.PublicKey)
	}

	orchestrator := NewOrchestrator(
		OrchestratorConfig{
			BuyAmountSol:   cfg.BuyAmountSol,
			MaxDailyTrades: cfg.Trading.MaxDailyTrades,
			MinMarketCap:   cfg.Trading.MinMarketCap,
		},
		store, feed, screener, executor, registry, balance, bus, logger,
	)

	logger.Info("🤖 Sniper initialized",
		zap.String("wallet", w.String()),
		zap.Bool("dry_run", cfg.DryRun),
		zap.Duration("tick_interval", cfg.TickInterval()))

	return &Runner{
		logger:       logger,
		config:       cfg,
		store:        store,
		bus:          bus,
		registry:     registry,
		orchestrator: orchestrator,
		shutdownCh:   make(chan os.Signal, 1),
	}, nil
}

// Run rehydrates monitors for any open positions and then runs the tick
// schedule until a shutdown signal arrives.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sig := <-r.shutdownCh
		r.logger.Info("📡 Signal received: " + sig.String())
		cancel()
	}()

	if err := r.registry.Rehydrate(runCtx); err != nil {
		return fmt.Errorf("rehydrate monitors: %w", err)
	}

	r.logger.Info("🚀 Starting trading loop")
	r.tick(runCtx)

	ticker := time.NewTicker(r.config.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			r.shutdown()
			return nil
		case <-ticker.C:
			r.tick(runCtx)
		}
	}
}

// tick runs one orchestrator cycle as a bulkhead: any error or panic is
// contained here so the schedule keeps going.
func (r *Runner) tick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tick panicked", zap.Any("panic", rec))
		}
	}()

	if err := r.orchestrator.RunTick(ctx); err != nil {
		r.logger.Error("tick aborted", zap.Error(err))
	}
}

func (r *Runner) shutdown() {
	r.logger.Info("👋 Shutting down, waiting for position monitors")
	r.registry.Shutdown()

	busCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.bus.Shutdown(busCtx); err != nil {
		r.logger.Error("event bus did not drain in time", zap.Error(err))
	}

	r.exportHistory()

	if err := r.store.Close(); err != nil {
		r.logger.Error("failed to close store", zap.Error(err))
	}
}

// exportHistory writes a trade history snapshot on shutdown when export_dir
// is configured.
func (r *Runner) exportHistory() {
	if r.config.ExportDir == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := r.store.ListLedgerEntries(ctx)
	if err != nil {
		r.logger.Error("failed to load trade history for export", zap.Error(err))
		return
	}
	if len(entries) == 0 {
		return
	}

	exporter := export.NewExporter(r.logger)
	if _, err := exporter.Export(entries, export.Options{
		Format:    export.FormatCSV,
		OutputDir: r.config.ExportDir,
	}); err != nil {
		r.logger.Error("trade history export failed", zap.Error(err))
	}
}

// subscribeTradeJournal logs a one-line audit record for every position
// lifecycle event, independent of the component that produced it.
func subscribeTradeJournal(bus *events.Bus, logger *zap.Logger) {
	journal := logger.Named("journal")

	bus.Subscribe(events.PositionOpened, events.HandlerFunc(func(_ context.Context, ev events.Event) error {
		opened, ok := ev.(events.PositionOpenedEvent)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", ev.Type())
		}
		journal.Info("OPEN",
			zap.String("pair_address", opened.PairAddress),
			zap.String("symbol", opened.Symbol),
			zap.Float64("entry_price", opened.EntryPrice),
			zap.Float64("amount_sol", opened.AmountSol),
			zap.String("tx_id", opened.TxID))
		return nil
	}))

	bus.Subscribe(events.PositionClosed, events.HandlerFunc(func(_ context.Context, ev events.Event) error {
		closed, ok := ev.(events.PositionClosedEvent)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", ev.Type())
		}
		journal.Info("CLOSE",
			zap.String("pair_address", closed.PairAddress),
			zap.String("reason", closed.Reason),
			zap.Float64("entry_price", closed.EntryPrice),
			zap.Float64("exit_price", closed.ExitPrice),
			zap.String("tx_id", closed.TxID))
		return nil
	}))
}
