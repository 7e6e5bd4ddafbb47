// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/dex-sniper/internal/storage/models"
)

var (
	// ErrDuplicateKey signals a primary-key collision. The caller should
	// treat it as evidence its own deduplication check is stale and skip,
	// not crash.
	ErrDuplicateKey = errors.New("storage: duplicate key")

	// ErrNotFound signals the requested row does not exist.
	ErrNotFound = errors.New("storage: not found")
)

// Store is the source of truth for positions and the trade ledger. All
// operations are single-statement and atomic; concurrent writers targeting
// the same row are serialized by the storage engine.
type Store interface {
	// ListOpenAddresses returns pair addresses of all open positions.
	ListOpenAddresses(ctx context.Context) ([]string, error)

	// ListAllAddresses returns pair addresses of every position ever
	// held, regardless of status. Used by discovery deduplication:
	// a closed pair is never re-bought.
	ListAllAddresses(ctx context.Context) ([]string, error)

	// InsertPosition stores a new position. Fails with ErrDuplicateKey
	// if the pair address is already present.
	InsertPosition(ctx context.Context, pos *models.Position) error

	// UpdateStatus moves a position to the given status.
	UpdateStatus(ctx context.Context, address string, status models.PositionStatus) error

	// GetPosition returns the position for a pair address, or ErrNotFound.
	GetPosition(ctx context.Context, address string) (*models.Position, error)

	// AppendLedgerEntry records an executed swap. The ledger is
	// append-only; ErrDuplicateKey on tx id collision.
	AppendLedgerEntry(ctx context.Context, entry *models.TradeLedgerEntry) error

	// ListLedgerEntries returns the full trade history ordered by
	// execution time.
	ListLedgerEntries(ctx context.Context) ([]*models.TradeLedgerEntry, error)

	Close() error
}
