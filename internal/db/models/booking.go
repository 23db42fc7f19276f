package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking links a buyer and seller for one matched counterpart pair
// (spec.md §3 "Booking"). Append-only: no delete or update operation is
// exposed (DESIGN.md — the Rust original's delete_by_user_ids is not ported).
type Booking struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	OrderID   string    `gorm:"type:uuid;index" json:"order_id"`
	BuyerID   string    `gorm:"type:varchar(36);index" json:"buyer_id"`
	SellerID  string    `gorm:"type:varchar(36);index" json:"seller_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}
