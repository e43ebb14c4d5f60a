package usecase

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"
)

// CartUsecase は /Cart の業務ロジック。
// カートは最初の追加時に作られ、チェックアウトかクリアで消える
type CartUsecase struct {
	tx          repo.TransactionManager
	carts       repo.CartRepository
	cartDetails repo.CartDetailRepository
	designs     repo.DesignRepository
}

func NewCartUsecase(
	tx repo.TransactionManager,
	carts repo.CartRepository,
	cartDetails repo.CartDetailRepository,
	designs repo.DesignRepository,
) *CartUsecase {
	return &CartUsecase{
		tx:          tx,
		carts:       carts,
		cartDetails: cartDetails,
		designs:     designs,
	}
}

// 価格は現在のカタログ価格（確定は注文時）
type CartLine struct {
	ID         string          `json:"id"`
	DesignID   string          `json:"design_id"`
	DesignName string          `json:"design_name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int64           `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
	// 非表示になったデザイン
	Unavailable bool `json:"unavailable"`
}

type CartView struct {
	ID        string          `json:"id,omitempty"`
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

func (u *CartUsecase) GetCart(ctx context.Context, userID string) (CartView, error) {
	cart, err := u.carts.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return emptyCart(), nil
	}
	if err != nil {
		return CartView{}, NewInternalError(err)
	}
	return u.buildCartView(ctx, cart.ID)
}

// 同一デザインは数量加算
func (u *CartUsecase) AddToCart(ctx context.Context, userID string, designID string, qty int64) (CartView, error) {
	if qty < 1 {
		return CartView{}, NewValidationError("quantity must be at least 1")
	}

	d, err := u.designs.FindByID(ctx, designID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartView{}, NewNotFoundError("design not found")
	}
	if err != nil {
		return CartView{}, NewInternalError(err)
	}
	if d.Hidden {
		return CartView{}, NewValidationError("design is not available")
	}
	if qty > d.Quantity {
		return CartView{}, NewValidationError("not enough stock")
	}

	cart, err := u.carts.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartView{}, NewInternalError(err)
	}
	if err := u.cartDetails.UpsertByCartAndDesign(ctx, cart.ID, designID, qty); err != nil {
		return CartView{}, NewInternalError(err)
	}
	return u.buildCartView(ctx, cart.ID)
}

func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID string, detailID string, qty int64) (CartView, error) {
	if qty < 1 {
		return CartView{}, NewValidationError("quantity must be at least 1")
	}
	if err := u.checkOwned(ctx, userID, detailID); err != nil {
		return CartView{}, err
	}

	if err := u.cartDetails.UpdateQuantity(ctx, detailID, qty); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartView{}, NewNotFoundError("cart item not found")
		}
		return CartView{}, NewInternalError(err)
	}
	return u.GetCart(ctx, userID)
}

func (u *CartUsecase) RemoveCartItem(ctx context.Context, userID string, detailID string) (CartView, error) {
	if err := u.checkOwned(ctx, userID, detailID); err != nil {
		return CartView{}, err
	}

	if err := u.cartDetails.DeleteByID(ctx, detailID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartView{}, NewNotFoundError("cart item not found")
		}
		return CartView{}, NewInternalError(err)
	}
	return u.GetCart(ctx, userID)
}

// カートと明細を削除。無ければ何もしない
func (u *CartUsecase) ClearCart(ctx context.Context, userID string) error {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByUserID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return r.Carts().Delete(ctx, cart.ID)
	})
	return wrapTxError(err)
}

// 他人の明細は404
func (u *CartUsecase) checkOwned(ctx context.Context, userID, detailID string) error {
	owned, err := u.cartDetails.IsOwnedByUser(ctx, detailID, userID)
	if err != nil {
		return NewInternalError(err)
	}
	if !owned {
		return NewNotFoundError("cart item not found")
	}
	return nil
}

func (u *CartUsecase) buildCartView(ctx context.Context, cartID string) (CartView, error) {
	details, err := u.cartDetails.ListByCartID(ctx, cartID)
	if err != nil {
		return CartView{}, NewInternalError(err)
	}

	ids := make([]string, 0, len(details))
	for _, cd := range details {
		ids = append(ids, cd.DesignID)
	}
	designs, err := u.designs.FindByIDs(ctx, ids)
	if err != nil {
		return CartView{}, NewInternalError(err)
	}
	byID := make(map[string]model.Design, len(designs))
	for _, d := range designs {
		byID[d.ID] = d
	}

	view := CartView{ID: cartID, Items: make([]CartLine, 0, len(details)), Total: decimal.Zero}
	for _, cd := range details {
		d, ok := byID[cd.DesignID]
		if !ok {
			continue
		}
		line := model.SnapshotLine(d, cd.Quantity)
		cl := CartLine{
			ID:          cd.ID,
			DesignID:    d.ID,
			DesignName:  d.Name,
			UnitPrice:   line.UnitPrice,
			Quantity:    cd.Quantity,
			LineTotal:   line.LineTotal,
			Unavailable: d.Hidden,
		}
		view.Items = append(view.Items, cl)
		if !d.Hidden {
			view.Total = view.Total.Add(line.LineTotal)
		}
	}
	view.ItemCount = len(view.Items)
	return view, nil
}

func emptyCart() CartView {
	return CartView{Items: []CartLine{}, Total: decimal.Zero}
}
