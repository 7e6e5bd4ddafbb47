// internal/monitor/registry.go
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/dex-sniper/internal/events"
	"github.com/rovshanmuradov/dex-sniper/internal/storage"
	"github.com/rovshanmuradov/dex-sniper/internal/storage/models"
)

// Registry owns every active watcher, keyed by pair address. It can
// rehydrate watchers for open positions after a restart and join them all
// during shutdown.
type Registry struct {
	stopLossPct   float64
	takeProfitPct float64
	interval      time.Duration

	store  storage.Store
	prices PriceFetcher
	swaps  Swapper
	events events.Sink
	logger *zap.Logger

	mu       sync.Mutex
	watchers map[string]*Watcher
	wg       sync.WaitGroup
}

// RegistryConfig carries the shared collaborators and exit thresholds.
type RegistryConfig struct {
	StopLossPct   float64
	TakeProfitPct float64
	Interval      time.Duration
	Store         storage.Store
	Prices        PriceFetcher
	Swaps         Swapper
	Events        events.Sink
	Logger        *zap.Logger
}

func NewRegistry(cfg *RegistryConfig) *Registry {
	sink := cfg.Events
	if sink == nil {
		sink = events.Discard
	}
	return &Registry{
		stopLossPct:   cfg.StopLossPct,
		takeProfitPct: cfg.TakeProfitPct,
		interval:      cfg.Interval,
		store:         cfg.Store,
		prices:        cfg.Prices,
		swaps:         cfg.Swaps,
		events:        sink,
		logger:        cfg.Logger.Named("monitor"),
		watchers:      make(map[string]*Watcher),
	}
}

// Spawn starts an independent watcher for the position. A second spawn for
// the same pair address is a no-op.
func (r *Registry) Spawn(ctx context.Context, pos *models.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.watchers[pos.Address]; exists {
		r.logger.Warn("watcher already active for pair",
			zap.String("pair_address", pos.Address))
		return
	}

	w := NewWatcher(ctx, &WatcherConfig{
		Position:      pos,
		StopLossPct:   r.stopLossPct,
		TakeProfitPct: r.takeProfitPct,
		Interval:      r.interval,
		Store:         r.store,
		Prices:        r.prices,
		Swaps:         r.swaps,
		Events:        r.events,
		Logger:        r.logger,
	})
	r.watchers[pos.Address] = w

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.remove(pos.Address)
		w.Run()
	}()
}

// Rehydrate spawns a watcher for every open position in the store. Called
// at startup so positions survive a process restart.
func (r *Registry) Rehydrate(ctx context.Context) error {
	addresses, err := r.store.ListOpenAddresses(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate monitors: %w", err)
	}

	for _, address := range addresses {
		pos, err := r.store.GetPosition(ctx, address)
		if err != nil {
			r.logger.Error("failed to load open position for rehydration",
				zap.String("pair_address", address),
				zap.Error(err))
			continue
		}
		r.Spawn(ctx, pos)
	}

	if len(addresses) > 0 {
		r.logger.Info("rehydrated position monitors", zap.Int("count", len(addresses)))
	}
	return nil
}

// Active returns the pair addresses currently being watched.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	addresses := make([]string, 0, len(r.watchers))
	for address := range r.watchers {
		addresses = append(addresses, address)
	}
	return addresses
}

// Shutdown cancels all watchers and waits for them to finish, so in-flight
// exits complete rather than being abandoned.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	for _, w := range r.watchers {
		w.Stop()
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("all position monitors stopped")
}

func (r *Registry) remove(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.watchers, address)
}
