// internal/storage/models/trade.go
package models

import "time"

// TradeDirection is the side of an executed swap.
type TradeDirection string

const (
	DirectionBuy  TradeDirection = "BUY"
	DirectionSell TradeDirection = "SELL"
)

// TradeLedgerEntry is an immutable record of an executed swap. Entries are
// never updated or deleted.
type TradeLedgerEntry struct {
	TxID        string         `gorm:"primaryKey;column:tx_id;type:varchar(88)"`
	PairAddress string         `gorm:"index;not null;type:varchar(44)"`
	Direction   TradeDirection `gorm:"not null;type:varchar(4)"`
	Amount      float64        `gorm:"not null"`
	Price       float64        `gorm:"not null"`
	Timestamp   time.Time
}

func (TradeLedgerEntry) TableName() string {
	return "trade_history"
}
