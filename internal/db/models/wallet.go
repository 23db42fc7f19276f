package models

import (
	"github.com/shopspring/decimal"
)

// Wallet is consulted read-only by the order service's balance assertion
// (spec.md §3 "Wallet", §4.5 step 2). Wallet mutation (crediting/debiting on
// settlement) is external to this core. Grounded on
// original_source/src/models/wallet.rs and wallet_repository.rs.
type Wallet struct {
	ID            string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string          `gorm:"type:varchar(36);index" json:"user_id"`
	CryptoID      string          `gorm:"type:varchar(20);index" json:"crypto_id"`
	Balance       decimal.Decimal `gorm:"type:decimal(36,18)" json:"balance"`
	WalletAddress *string         `gorm:"type:varchar(128)" json:"wallet_address,omitempty"`
	Version       int32           `json:"version"`
}

func (Wallet) TableName() string { return "wallet" }
