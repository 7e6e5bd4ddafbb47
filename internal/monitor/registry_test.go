// internal/monitor/registry_test.go
package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/dex-sniper/internal/storage/models"
)

func newTestRegistry(t *testing.T, store *fakeStore, prices PriceFetcher, swaps Swapper) *Registry {
	t.Helper()
	return NewRegistry(&RegistryConfig{
		StopLossPct:   15,
		TakeProfitPct: 30,
		Interval:      10 * time.Millisecond,
		Store:         store,
		Prices:        prices,
		Swaps:         swaps,
		Logger:        zaptest.NewLogger(t),
	})
}

func TestSpawnIsDeduplicatedPerPair(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.InsertPosition(context.Background(), openPosition()))

	reg := newTestRegistry(t, store, &fakePrices{err: errors.New("feed down")}, &fakeSwapper{})
	defer reg.Shutdown()

	reg.Spawn(context.Background(), openPosition())
	reg.Spawn(context.Background(), openPosition())

	require.Len(t, reg.Active(), 1)
}

func TestRehydrateSpawnsOpenPositions(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	open := openPosition()
	require.NoError(t, store.InsertPosition(ctx, open))

	closed := openPosition()
	closed.Address = "pair-closed"
	closed.Status = models.StatusClosed
	require.NoError(t, store.InsertPosition(ctx, closed))

	reg := newTestRegistry(t, store, &fakePrices{err: errors.New("feed down")}, &fakeSwapper{})
	defer reg.Shutdown()

	require.NoError(t, reg.Rehydrate(ctx))
	require.Equal(t, []string{"pair-1"}, reg.Active())
}

func TestShutdownJoinsWatchers(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.InsertPosition(context.Background(), openPosition()))

	reg := newTestRegistry(t, store, &fakePrices{err: errors.New("feed down")}, &fakeSwapper{})
	reg.Spawn(context.Background(), openPosition())

	done := make(chan struct{})
	go func() {
		reg.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not join watchers in time")
	}
	require.Empty(t, reg.Active())
}

func TestWatcherRemovesItselfAfterExit(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.InsertPosition(context.Background(), openPosition()))
	swaps := &fakeSwapper{}

	reg := newTestRegistry(t, store, &fakePrices{price: 80}, swaps)
	reg.Spawn(context.Background(), openPosition())

	require.Eventually(t, func() bool {
		return len(reg.Active()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, 1, swaps.swapCount())
	reg.Shutdown()
}
