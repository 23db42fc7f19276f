package repositories

import (
	"context"

	"github.com/abdoElHodaky/tradSys/internal/db/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BookingRepository records the buyer/seller pairing for each matched
// counterpart (spec.md §4.3). Append-only: no update or delete is exposed.
type BookingRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewBookingRepository(db *gorm.DB, logger *zap.Logger) *BookingRepository {
	return &BookingRepository{db: db, logger: logger}
}

// SaveCoinBooking records one matched buyer/seller pair for orderID.
func (r *BookingRepository) SaveCoinBooking(ctx context.Context, orderID, buyerID, sellerID string) (*models.Booking, error) {
	booking := &models.Booking{
		OrderID:  orderID,
		BuyerID:  buyerID,
		SellerID: sellerID,
	}
	if result := r.db.WithContext(ctx).Create(booking); result.Error != nil {
		r.logger.Error("failed to save booking", zap.Error(result.Error), zap.String("order_id", orderID))
		return nil, result.Error
	}
	return booking, nil
}

// FindByOrderID returns all bookings referencing orderID.
func (r *BookingRepository) FindByOrderID(ctx context.Context, orderID string) ([]*models.Booking, error) {
	var bookings []*models.Booking
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&bookings).Error; err != nil {
		r.logger.Error("failed to find bookings", zap.Error(err), zap.String("order_id", orderID))
		return nil, err
	}
	return bookings, nil
}
