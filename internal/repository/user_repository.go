package repository

import (
	"context"

	"github.com/solecraft/marketplace/internal/domain/model"
)

// ユーザーの保存・取得を約束
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	// 見つからなければErrNotFound
	FindByID(ctx context.Context, userID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByIDs(ctx context.Context, userIDs []string) ([]model.User, error)
	SetActive(ctx context.Context, userID string, active bool) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID string) error
}

// ログイン情報
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	FindByUserName(ctx context.Context, userName string) (*model.Account, error)
	FindByUserID(ctx context.Context, userID string) (*model.Account, error)
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.Account, error)
	Update(ctx context.Context, account *model.Account) error
}
