// internal/storage/models/position.go
package models

import "time"

// PositionStatus is the lifecycle state of a held token exposure.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
	// StatusLiquidated is reserved for forced exits (e.g. rug detection).
	// No current code path sets it; it exists as an extension point.
	StatusLiquidated PositionStatus = "liquidated"
)

// Position is a held or previously-held token exposure, keyed by the
// liquidity pool address.
type Position struct {
	Address    string         `gorm:"primaryKey;type:varchar(44)"`
	TokenMint  string         `gorm:"index;not null;type:varchar(44)"`
	Symbol     string         `gorm:"type:varchar(32)"`
	EntryPrice float64        `gorm:"not null"`
	Amount     float64        `gorm:"not null"`
	Status     PositionStatus `gorm:"not null;default:open;type:varchar(16)"`
	CreatedAt  time.Time
}
