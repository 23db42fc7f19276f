package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus is the PersistedOrder status domain (spec.md §3).
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "OPEN"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
	OrderStatusDisputed        OrderStatus = "DISPUTED"
)

// OrderSide is the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType is the kind of order. Only LIMIT is exercised by this core;
// MARKET and STOPLOSS are reserved (spec.md §1 Non-goals).
type OrderType string

const (
	OrderTypeLimit    OrderType = "LIMIT"
	OrderTypeMarket   OrderType = "MARKET"
	OrderTypeStopLoss OrderType = "STOPLOSS"
)

// Order is the durable row backing a PersistedOrder (spec.md §3, §6.2).
type Order struct {
	ID           string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string          `gorm:"type:varchar(36);index" json:"user_id"`
	Symbol       string          `gorm:"type:varchar(20);index" json:"symbol"`
	Side         OrderSide       `gorm:"type:varchar(10);index" json:"side"`
	Type         OrderType       `gorm:"type:varchar(20)" json:"type"`
	Price        decimal.Decimal `gorm:"type:decimal(36,18)" json:"price"`
	Quantity     decimal.Decimal `gorm:"type:decimal(36,18)" json:"quantity"`
	FilledAmount decimal.Decimal `gorm:"type:decimal(36,18)" json:"filled_amount"`
	Status       OrderStatus     `gorm:"type:varchar(20);index" json:"status"`
	IsMaker      bool            `json:"is_maker"`
	BankID       *string         `gorm:"type:varchar(36)" json:"bank_id,omitempty"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BeforeCreate assigns a UUIDv4 id when unset (§6.2: "Order-id ... are
// UUIDv4 strings").
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}
