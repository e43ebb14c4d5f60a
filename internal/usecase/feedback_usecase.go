package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"
)

type FeedbackUsecase struct {
	feedback repo.FeedbackRepository
	orders   repo.OrderRepository
	details  repo.OrderDetailRepository
	users    repo.UserRepository
	ids      IDGenerator
	clock    Clock
}

func NewFeedbackUsecase(
	feedback repo.FeedbackRepository,
	orders repo.OrderRepository,
	details repo.OrderDetailRepository,
	users repo.UserRepository,
	ids IDGenerator,
	clock Clock,
) *FeedbackUsecase {
	return &FeedbackUsecase{
		feedback: feedback,
		orders:   orders,
		details:  details,
		users:    users,
		ids:      ids,
		clock:    clock,
	}
}

type FeedbackInput struct {
	DesignerID  string
	OrderID     string
	Stars       int
	Description string
}

type DesignerFeedback struct {
	DesignerID   string           `json:"designer_id"`
	AverageStars float64          `json:"average_stars"`
	Count        int              `json:"count"`
	Items        []model.Feedback `json:"items"`
}

type OrderDesigner struct {
	DesignerID   string `json:"designer_id"`
	DesignerName string `json:"designer_name"`
	Rated        bool   `json:"rated"`
}

// SubmitFeedback は (customer, designer, order) ごとに1件だけ受け付ける。
// 判定順: デザイナー → 注文 → 所有者 → 購入明細 → 重複 → 入力値
func (u *FeedbackUsecase) SubmitFeedback(ctx context.Context, customerID string, in FeedbackInput) (*model.Feedback, error) {
	designer, err := u.users.FindByID(ctx, in.DesignerID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewNotFoundError("designer not found")
	}
	if err != nil {
		return nil, NewInternalError(err)
	}
	if designer.Role != model.RoleDesigner {
		return nil, NewNotFoundError("designer not found")
	}

	order, err := u.orders.FindByID(ctx, in.OrderID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewNotFoundError("order not found")
	}
	if err != nil {
		return nil, NewInternalError(err)
	}
	if order.UserID != customerID {
		return nil, NewForbiddenError("order does not belong to you")
	}

	// 注文にそのデザイナーの明細がなければ評価できない
	details, err := u.details.ListByOrderID(ctx, order.ID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if !hasDesigner(details, in.DesignerID) {
		return nil, NewForbiddenError("designer is not part of this order")
	}

	exists, err := u.feedback.Exists(ctx, customerID, in.DesignerID, in.OrderID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if exists {
		return nil, NewDuplicateError("feedback already submitted for this order")
	}

	text := strings.TrimSpace(in.Description)
	if in.Stars < 1 || in.Stars > 5 {
		return nil, NewValidationError("stars must be between 1 and 5")
	}
	if text == "" {
		return nil, NewValidationError("description is required")
	}

	f := &model.Feedback{
		ID:          u.ids.NewID(),
		Stars:       in.Stars,
		Description: text,
		CustomerID:  customerID,
		DesignerID:  in.DesignerID,
		OrderID:     in.OrderID,
		CreatedAt:   u.clock.Now(),
	}
	// 同時送信はユニーク制約で弾く
	if err := u.feedback.Create(ctx, f); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, NewDuplicateError("feedback already submitted for this order")
		}
		return nil, NewInternalError(err)
	}
	return f, nil
}

func (u *FeedbackUsecase) ListDesignerFeedback(ctx context.Context, designerID string) (DesignerFeedback, error) {
	items, err := u.feedback.ListByDesignerID(ctx, designerID)
	if err != nil {
		return DesignerFeedback{}, NewInternalError(err)
	}

	out := DesignerFeedback{DesignerID: designerID, Count: len(items), Items: items}
	if len(items) > 0 {
		sum := 0
		for _, f := range items {
			sum += f.Stars
		}
		out.AverageStars = float64(sum) / float64(len(items))
	}
	return out, nil
}

func (u *FeedbackUsecase) ListMyFeedback(ctx context.Context, customerID string) ([]model.Feedback, error) {
	items, err := u.feedback.ListByCustomerID(ctx, customerID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	return items, nil
}

// ListOrderDesigners は注文に含まれるデザイナーと評価済みかどうかを返す
func (u *FeedbackUsecase) ListOrderDesigners(ctx context.Context, customerID, orderID string) ([]OrderDesigner, error) {
	order, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewNotFoundError("order not found")
	}
	if err != nil {
		return nil, NewInternalError(err)
	}
	if order.UserID != customerID {
		return nil, NewForbiddenError("order does not belong to you")
	}

	details, err := u.details.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	given, err := u.feedback.ListByOrderID(ctx, customerID, orderID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	rated := make(map[string]bool, len(given))
	for _, f := range given {
		rated[f.DesignerID] = true
	}

	// 明細の順で重複なし
	ids := []string{}
	seen := map[string]bool{}
	for _, d := range details {
		if !seen[d.DesignerID] {
			seen[d.DesignerID] = true
			ids = append(ids, d.DesignerID)
		}
	}
	users, err := u.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, NewInternalError(err)
	}
	names := make(map[string]string, len(users))
	for _, usr := range users {
		names[usr.ID] = usr.Name
	}

	out := make([]OrderDesigner, 0, len(ids))
	for _, id := range ids {
		out = append(out, OrderDesigner{DesignerID: id, DesignerName: names[id], Rated: rated[id]})
	}
	return out, nil
}

func hasDesigner(details []model.OrderDetail, designerID string) bool {
	for _, d := range details {
		if d.DesignerID == designerID {
			return true
		}
	}
	return false
}
