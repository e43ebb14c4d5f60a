package repository

import (
	"context"
	"errors"

	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"

	"gorm.io/gorm"
)

type WalletTransactionGormRepository struct {
	db *gorm.DB
}

func NewWalletTransactionGormRepository(db *gorm.DB) *WalletTransactionGormRepository {
	return &WalletTransactionGormRepository{db: db}
}

func (r *WalletTransactionGormRepository) Create(ctx context.Context, t *model.WalletTransaction) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		if isDuplicate(err) {
			return repo.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *WalletTransactionGormRepository) FindByID(ctx context.Context, id string) (*model.WalletTransaction, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *WalletTransactionGormRepository) FindByExternalRef(ctx context.Context, ref string) (*model.WalletTransaction, error) {
	if ref == "" {
		return nil, repo.ErrNotFound
	}
	return r.findOne(ctx, "external_ref = ?", ref)
}

func (r *WalletTransactionGormRepository) List(ctx context.Context, f repo.TransactionListFilter) ([]model.WalletTransaction, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.WalletTransaction{})
		if f.WalletID != "" {
			q = q.Where("wallet_id = ?", f.WalletID)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.Type != "" {
			q = q.Where("type = ?", f.Type)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return []model.WalletTransaction{}, 0, err
	}

	var items []model.WalletTransaction
	offset := (f.Page - 1) * f.Limit
	err := filtered().
		Order("created_at desc").
		Order("id desc").
		Limit(f.Limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.WalletTransaction{}, 0, err
	}
	return items, total, nil
}

// PENDINGの行だけを確定する
func (r *WalletTransactionGormRepository) Finalize(ctx context.Context, id string, f repo.TransactionFinal) error {
	res := r.db.WithContext(ctx).
		Model(&model.WalletTransaction{}).
		Where("id = ? AND status = ?", id, model.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":         f.Status,
			"balance_before": f.BalanceBefore,
			"balance_after":  f.BalanceAfter,
			"description":    f.Description,
			"completed_at":   f.At,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return repo.ErrStateConflict
	}
	return nil
}

func (r *WalletTransactionGormRepository) findOne(ctx context.Context, cond string, arg interface{}) (*model.WalletTransaction, error) {
	var t model.WalletTransaction
	err := r.db.WithContext(ctx).Where(cond, arg).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
