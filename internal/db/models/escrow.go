package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EscrowStatus tracks a seller-escrow row through its lifecycle
// (spec.md §3 "Escrow"): OPEN -> PENDING -> COMPLETED, or PENDING -> DISPUTED.
type EscrowStatus string

const (
	EscrowStatusOpen      EscrowStatus = "OPEN"
	EscrowStatusPending   EscrowStatus = "PENDING"
	EscrowStatusCompleted EscrowStatus = "COMPLETED"
	EscrowStatusDisputed  EscrowStatus = "DISPUTED"
)

// Escrow holds a seller's asset obligation from admission until settlement.
// Grounded on original_source/src/repositories/escrow_repository.rs.
type Escrow struct {
	ID        string          `gorm:"primaryKey;type:uuid" json:"id"`
	OrderID   string          `gorm:"type:uuid;index" json:"order_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(36,18)" json:"amount"`
	Status    EscrowStatus    `gorm:"type:varchar(20);index" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

func (e *Escrow) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
