package repository

import (
	"context"

	"github.com/solecraft/marketplace/internal/domain/model"
)

// 公開一覧の条件
type DesignListQuery struct {
	Page       int
	Limit      int
	CategoryID string
	DesignerID string
	// trueなら非表示も含める（デザイナー本人用）
	IncludeHidden bool
}

// デザインと画像をまとめて扱う
type DesignRepository interface {
	Create(ctx context.Context, d *model.Design) error
	// 画像も読み込む
	FindByID(ctx context.Context, id string) (*model.Design, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Design, error)
	List(ctx context.Context, q DesignListQuery) ([]model.Design, int64, error)
	// 画像は全置換
	Update(ctx context.Context, d *model.Design) error
	SetHidden(ctx context.Context, id string, hidden bool) error
	// 在庫が足りるときだけ減らす。足りなければfalse
	DecreaseQuantityIfEnough(ctx context.Context, id string, qty int64) (bool, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	FindByID(ctx context.Context, id string) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
}
