package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"
)

type AdminUserUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewAdminUserUsecase(tx repo.TransactionManager, clock Clock) *AdminUserUsecase {
	return &AdminUserUsecase{tx: tx, clock: clock}
}

// SetUserActive は有効/無効を切り替える。無効化と同時に既存JWTも失効させる
func (u *AdminUserUsecase) SetUserActive(ctx context.Context, adminID string, userID string, active bool) (UserDTO, error) {
	if adminID == userID && !active {
		return UserDTO{}, NewValidationError("cannot deactivate yourself")
	}

	var out UserDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("user not found")
		}
		if err != nil {
			return err
		}

		before := user.IsActive
		if err := r.Users().SetActive(ctx, userID, active); err != nil {
			return err
		}
		if err := r.Users().IncrementTokenVersion(ctx, userID); err != nil {
			return err
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminID,
			Action:       model.AuditActionSetUserActive,
			ResourceType: model.AuditResourceUser,
			ResourceID:   userID,
			BeforeJSON:   fmt.Sprintf(`{"is_active":%t}`, before),
			AfterJSON:    fmt.Sprintf(`{"is_active":%t}`, active),
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return err
		}

		user.IsActive = active
		out = toUserDTO(user)
		return nil
	})
	if err != nil {
		return UserDTO{}, wrapTxError(err)
	}
	return out, nil
}
