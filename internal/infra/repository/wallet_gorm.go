package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletGormRepository struct {
	db *gorm.DB
}

func NewWalletGormRepository(db *gorm.DB) *WalletGormRepository {
	return &WalletGormRepository{db: db}
}

// 無ければ残高0で作成
func (r *WalletGormRepository) GetOrCreateByUserID(ctx context.Context, userID string) (*model.Wallet, error) {
	w, err := r.findOne(ctx, "user_id = ?", userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	newWallet := model.Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Balance:   decimal.Zero,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&newWallet).Error
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, "user_id = ?", userID)
}

func (r *WalletGormRepository) FindByID(ctx context.Context, walletID string) (*model.Wallet, error) {
	return r.findOne(ctx, "id = ?", walletID)
}

// 読み→計算→書き にしない。残高の加減算はこの1文だけ
func (r *WalletGormRepository) AdjustBalance(ctx context.Context, walletID string, delta decimal.Decimal) (decimal.Decimal, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ? AND balance + ? >= 0", walletID, delta).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, walletID); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, repo.ErrInsufficientBalance
	}

	w, err := r.FindByID(ctx, walletID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

func (r *WalletGormRepository) findOne(ctx context.Context, cond string, arg interface{}) (*model.Wallet, error) {
	var w model.Wallet
	err := r.db.WithContext(ctx).Where(cond, arg).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}
