package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartとCartDetailの両方を実装する
type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// ユーザーのカートを取得し、無ければ作成
func (r *CartGormRepository) GetOrCreateByUserID(ctx context.Context, userID string) (*model.Cart, error) {
	cart, err := r.FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	// 無ければ作る
	newCart := model.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	// 同時作成で負けた場合は既存を読み直す
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&newCart).Error
	if err != nil {
		return nil, err
	}
	return r.FindByUserID(ctx, userID)
}

func (r *CartGormRepository) FindByUserID(ctx context.Context, userID string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// 明細→カートの順に削除
func (r *CartGormRepository) Delete(ctx context.Context, cartID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartDetail{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", cartID).Delete(&model.Cart{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

// カート明細を一覧取得
func (r *CartGormRepository) ListByCartID(ctx context.Context, cartID string) ([]model.CartDetail, error) {
	var items []model.CartDetail
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartDetail{}, err
	}
	return items, nil
}

// 同一デザインは数量加算
func (r *CartGormRepository) UpsertByCartAndDesign(ctx context.Context, cartID string, designID string, addQty int64) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}

	// (cart_id, design_id) の一意制約でupsert
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "design_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("cart_details.quantity + excluded.quantity"),
		}),
	}).Create(&model.CartDetail{
		ID:       uuid.NewString(),
		CartID:   cartID,
		DesignID: designID,
		Quantity: addQty,
	}).Error
}

// 明細の数量を更新
func (r *CartGormRepository) UpdateQuantity(ctx context.Context, detailID string, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartDetail{}).
		Where("id = ?", detailID).
		Update("quantity", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除
func (r *CartGormRepository) DeleteByID(ctx context.Context, detailID string) error {
	res := r.db.WithContext(ctx).Where("id = ?", detailID).Delete(&model.CartDetail{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細が、そのuserのカートに属しているかを判定
func (r *CartGormRepository) IsOwnedByUser(ctx context.Context, detailID string, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("cart_details").
		Joins("join carts on carts.id = cart_details.cart_id").
		Where("cart_details.id = ? AND carts.user_id = ?", detailID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
