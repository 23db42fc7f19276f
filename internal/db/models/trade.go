package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is the durable row for an executed match (spec.md §3, §6.2). Trade
// ids are surrogate integers, unlike the UUID order/escrow/booking ids.
type Trade struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	BidID     string          `gorm:"type:uuid;index" json:"bid_id"`
	AskID     string          `gorm:"type:uuid;index" json:"ask_id"`
	Symbol    string          `gorm:"type:varchar(20);index" json:"symbol"`
	Price     decimal.Decimal `gorm:"type:decimal(36,18)" json:"price"`
	Quantity  decimal.Decimal `gorm:"type:decimal(36,18)" json:"quantity"`
	Timestamp time.Time       `gorm:"index" json:"timestamp"`
}

func (Trade) TableName() string { return "trades" }
