package repositories

import (
	"context"

	"github.com/abdoElHodaky/tradSys/internal/db/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WalletRepository is consulted read-only by the order service's admission
// check (spec.md §4.5 step 2: a SELL order must be covered by balance).
// Wallet mutation (crediting/debiting on settlement) is external to this
// core. Grounded on original_source/src/repositories/wallet_repository.rs,
// whose find_by_user_id_and_asset is the only method order_service.rs
// actually calls — the rest of that file (create/update/delete/find_all) is
// dead code in the original and is not ported.
type WalletRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewWalletRepository(db *gorm.DB, logger *zap.Logger) *WalletRepository {
	return &WalletRepository{db: db, logger: logger}
}

// FindByUserAndAsset returns the wallet balance backing userID's holdings of
// cryptoID, or (nil, nil) if no wallet row exists.
func (r *WalletRepository) FindByUserAndAsset(ctx context.Context, userID, cryptoID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND crypto_id = ?", userID, cryptoID).
		First(&wallet).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Error("failed to find wallet", zap.Error(err), zap.String("user_id", userID), zap.String("crypto_id", cryptoID))
		return nil, err
	}
	return &wallet, nil
}

// HasSufficientBalance reports whether userID's cryptoID wallet covers
// amount. A missing wallet row is treated as zero balance.
func (r *WalletRepository) HasSufficientBalance(ctx context.Context, userID, cryptoID string, amount decimal.Decimal) (bool, error) {
	wallet, err := r.FindByUserAndAsset(ctx, userID, cryptoID)
	if err != nil {
		return false, err
	}
	if wallet == nil {
		return false, nil
	}
	return wallet.Balance.GreaterThanOrEqual(amount), nil
}
