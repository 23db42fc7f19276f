package repositories

import (
	"context"

	"github.com/abdoElHodaky/tradSys/internal/db/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EscrowRepository manages the seller-side escrow row created on admission
// of a SELL order (spec.md §4.3, grounded on
// original_source/src/repositories/escrow_repository.rs).
type EscrowRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewEscrowRepository(db *gorm.DB, logger *zap.Logger) *EscrowRepository {
	return &EscrowRepository{db: db, logger: logger}
}

// CreateEscrow opens an escrow row in OPEN status for orderID.
func (r *EscrowRepository) CreateEscrow(ctx context.Context, orderID string, amount decimal.Decimal) (*models.Escrow, error) {
	escrow := &models.Escrow{
		OrderID: orderID,
		Amount:  amount,
		Status:  models.EscrowStatusOpen,
	}

	if result := r.db.WithContext(ctx).Create(escrow); result.Error != nil {
		r.logger.Error("failed to create escrow", zap.Error(result.Error), zap.String("order_id", orderID))
		return nil, result.Error
	}
	return escrow, nil
}

// UpdateEscrowStatus transitions an existing escrow row (spec.md §4.3
// update_escrow_status: OPEN->PENDING->COMPLETED, or PENDING->DISPUTED).
func (r *EscrowRepository) UpdateEscrowStatus(ctx context.Context, escrowID string, status models.EscrowStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Escrow{}).
		Where("id = ?", escrowID).
		Update("status", status)
	if result.Error != nil {
		r.logger.Error("failed to update escrow status", zap.Error(result.Error), zap.String("escrow_id", escrowID))
		return result.Error
	}
	return nil
}

// FindByOrderID returns the escrow row for orderID, if any.
func (r *EscrowRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Escrow, error) {
	var escrow models.Escrow
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&escrow).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &escrow, nil
}
