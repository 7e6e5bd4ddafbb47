// internal/events/types.go
package events

import (
	"time"
)

// EventType identifies the kind of trade lifecycle event.
type EventType string

const (
	PositionOpened EventType = "position.opened"
	PositionClosed EventType = "position.closed"
)

// Event is the base interface for all trade events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent carries the fields common to every event.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// PositionOpenedEvent is emitted after a buy swap confirms and the position
// is persisted.
type PositionOpenedEvent struct {
	BaseEvent
	PairAddress string
	TokenMint   string
	Symbol      string
	EntryPrice  float64
	AmountSol   float64
	TxID        string
}

// PositionClosedEvent is emitted after an exit swap confirms.
type PositionClosedEvent struct {
	BaseEvent
	PairAddress string
	TokenMint   string
	Reason      string // "stop-loss" or "take-profit"
	EntryPrice  float64
	ExitPrice   float64
	TxID        string
}

// NewPositionOpened builds a PositionOpenedEvent stamped with the current time.
func NewPositionOpened(pairAddress, tokenMint, symbol string, entryPrice, amountSol float64, txID string) PositionOpenedEvent {
	return PositionOpenedEvent{
		BaseEvent:   BaseEvent{EventType: PositionOpened, EventTime: time.Now()},
		PairAddress: pairAddress,
		TokenMint:   tokenMint,
		Symbol:      symbol,
		EntryPrice:  entryPrice,
		AmountSol:   amountSol,
		TxID:        txID,
	}
}

// NewPositionClosed builds a PositionClosedEvent stamped with the current time.
func NewPositionClosed(pairAddress, tokenMint, reason string, entryPrice, exitPrice float64, txID string) PositionClosedEvent {
	return PositionClosedEvent{
		BaseEvent:   BaseEvent{EventType: PositionClosed, EventTime: time.Now()},
		PairAddress: pairAddress,
		TokenMint:   tokenMint,
		Reason:      reason,
		EntryPrice:  entryPrice,
		ExitPrice:   exitPrice,
		TxID:        txID,
	}
}
