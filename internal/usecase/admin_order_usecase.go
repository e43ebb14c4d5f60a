package usecase

import (
	"context"
	"errors"

	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"
)

type AdminOrderUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewAdminOrderUsecase(tx repo.TransactionManager, clock Clock) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, clock: clock}
}

// CompleteOrder はPAIDの注文だけをCOMPLETEDにする
func (u *AdminOrderUsecase) CompleteOrder(ctx context.Context, adminID string, orderID string) (*model.Order, error) {
	var out *model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("order not found")
		}
		if err != nil {
			return err
		}
		if o.Status != model.OrderStatusPaid {
			return NewInvalidStateError("only PAID orders can be completed")
		}

		now := u.clock.Now()
		err = r.Orders().TransitionStatus(ctx, orderID, model.OrderStatusPaid, model.OrderStatusCompleted, now)
		if errors.Is(err, repo.ErrStateConflict) {
			return NewInvalidStateError("only PAID orders can be completed")
		}
		if err != nil {
			return err
		}

		// 監査ログ（COMPLETE_ORDER）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminID,
			Action:       model.AuditActionCompleteOrder,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   `{"status":"` + string(model.OrderStatusPaid) + `"}`,
			AfterJSON:    `{"status":"` + string(model.OrderStatusCompleted) + `"}`,
			CreatedAt:    now,
		}); err != nil {
			return err
		}

		o.Status = model.OrderStatusCompleted
		o.UpdatedAt = now
		out = o
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err)
	}
	return out, nil
}
