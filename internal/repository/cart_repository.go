package repository

import (
	"context"

	"github.com/solecraft/marketplace/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateByUserID(ctx context.Context, userID string) (*model.Cart, error)
	FindByUserID(ctx context.Context, userID string) (*model.Cart, error)
	// 明細ごと削除
	Delete(ctx context.Context, cartID string) error
}

type CartDetailRepository interface {
	ListByCartID(ctx context.Context, cartID string) ([]model.CartDetail, error)
	// 同一デザインは数量加算
	UpsertByCartAndDesign(ctx context.Context, cartID string, designID string, addQty int64) error
	UpdateQuantity(ctx context.Context, detailID string, qty int64) error
	DeleteByID(ctx context.Context, detailID string) error
	// 明細がそのユーザーのカートのものか
	IsOwnedByUser(ctx context.Context, detailID string, userID string) (bool, error)
}
