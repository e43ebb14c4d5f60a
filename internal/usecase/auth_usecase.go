package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/solecraft/marketplace/internal/domain/model"
	mailer "github.com/solecraft/marketplace/internal/mail"
	repo "github.com/solecraft/marketplace/internal/repository"
)

// パスワード再設定トークンの有効期限
const resetTokenTTL = 30 * time.Minute

const minPasswordLen = 8

type UserDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	UserName string
	Password string
	Role     string
}

type LoginInput struct {
	UserName string
	Password string
}

type LoginOutput struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserDTO   `json:"user"`
}

type AuthUsecase struct {
	tx       repo.TransactionManager
	users    repo.UserRepository
	accounts repo.AccountRepository
	hasher   PasswordHasher
	issuer   TokenIssuer
	mailer   mailer.Mailer
	ids      IDGenerator
	clock    Clock
	// 再設定リンクの組み立てに使う
	frontendURL string
}

func NewAuthUsecase(
	tx repo.TransactionManager,
	users repo.UserRepository,
	accounts repo.AccountRepository,
	hasher PasswordHasher,
	issuer TokenIssuer,
	m mailer.Mailer,
	ids IDGenerator,
	clock Clock,
	frontendURL string,
) *AuthUsecase {
	return &AuthUsecase{
		tx:          tx,
		users:       users,
		accounts:    accounts,
		hasher:      hasher,
		issuer:      issuer,
		mailer:      m,
		ids:         ids,
		clock:       clock,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// 会員登録。ADMINは登録できない
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (UserDTO, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	userName := strings.TrimSpace(in.UserName)

	if name == "" {
		return UserDTO{}, NewValidationError("name is required")
	}
	if !isValidEmail(email) {
		return UserDTO{}, NewValidationError("invalid email")
	}
	if len(userName) < 3 || len(userName) > 100 {
		return UserDTO{}, NewValidationError("username must be 3-100 characters")
	}
	if len(in.Password) < minPasswordLen {
		return UserDTO{}, NewValidationError("password must be at least 8 characters")
	}

	role := model.RoleUser
	switch strings.ToUpper(strings.TrimSpace(in.Role)) {
	case "", string(model.RoleUser):
	case string(model.RoleDesigner):
		role = model.RoleDesigner
	default:
		return UserDTO{}, NewValidationError("invalid role")
	}

	// 重複チェック（一意制約でも弾く）
	if _, err := u.users.FindByEmail(ctx, email); err == nil {
		return UserDTO{}, NewDuplicateError("email already used")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return UserDTO{}, NewInternalError(err)
	}
	if _, err := u.accounts.FindByUserName(ctx, userName); err == nil {
		return UserDTO{}, NewDuplicateError("username already taken")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return UserDTO{}, NewInternalError(err)
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return UserDTO{}, NewInternalError(err)
	}

	now := u.clock.Now()
	user := &model.User{
		ID:        u.ids.NewID(),
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	account := &model.Account{
		ID:           u.ids.NewID(),
		UserID:       user.ID,
		UserName:     userName,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Users().Create(ctx, user); err != nil {
			return err
		}
		return r.Accounts().Create(ctx, account)
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return UserDTO{}, NewDuplicateError("username or email already used")
	}
	if err != nil {
		return UserDTO{}, NewInternalError(err)
	}

	return toUserDTO(user), nil
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	userName := strings.TrimSpace(in.UserName)
	if userName == "" || in.Password == "" {
		return LoginOutput{}, NewValidationError("username and password are required")
	}

	account, err := u.accounts.FindByUserName(ctx, userName)
	if errors.Is(err, repo.ErrNotFound) {
		return LoginOutput{}, NewAuthenticationError("invalid username or password")
	}
	if err != nil {
		return LoginOutput{}, NewInternalError(err)
	}

	//パスワード照合（bcrypt）
	if !u.hasher.Verify(in.Password, account.PasswordHash) {
		return LoginOutput{}, NewAuthenticationError("invalid username or password")
	}

	user, err := u.users.FindByID(ctx, account.UserID)
	if err != nil {
		return LoginOutput{}, NewInternalError(err)
	}
	//停止ユーザーはログイン不可
	if !user.IsActive {
		return LoginOutput{}, NewForbiddenError("account is deactivated")
	}

	token, exp, err := u.issuer.Issue(user, u.clock.Now())
	if err != nil {
		return LoginOutput{}, NewInternalError(err)
	}

	return LoginOutput{Token: token, ExpiresAt: exp, User: toUserDTO(user)}, nil
}

// ForgotPassword はユーザーの有無に関わらず成功を返す
func (u *AuthUsecase) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !isValidEmail(email) {
		return NewValidationError("invalid email")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return NewInternalError(err)
	}

	account, err := u.accounts.FindByUserID(ctx, user.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return NewInternalError(err)
	}

	plain, hash, err := newRandomTokenAndHash()
	if err != nil {
		return NewInternalError(err)
	}

	now := u.clock.Now()
	exp := now.Add(resetTokenTTL)
	account.ResetTokenHash = hash
	account.ResetTokenExpiresAt = &exp
	account.UpdatedAt = now
	if err := u.accounts.Update(ctx, account); err != nil {
		return NewInternalError(err)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", u.frontendURL, plain)
	if err := u.mailer.Send(ctx, mailer.Message{
		To:      user.Email,
		Subject: "Reset your password",
		Body:    "Open this link within 30 minutes to set a new password: " + link,
	}); err != nil {
		return NewUpstreamError("failed to send mail", err)
	}
	return nil
}

// ResetPassword は成功すると既存のJWTを全て無効にする
func (u *AuthUsecase) ResetPassword(ctx context.Context, token string, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return NewValidationError("token is required")
	}
	if len(newPassword) < minPasswordLen {
		return NewValidationError("password must be at least 8 characters")
	}

	hashed, err := u.hasher.Hash(newPassword)
	if err != nil {
		return NewInternalError(err)
	}

	now := u.clock.Now()
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		account, err := r.Accounts().FindByResetTokenHash(ctx, hashToken(token))
		if errors.Is(err, repo.ErrNotFound) {
			return NewValidationError("invalid or expired token")
		}
		if err != nil {
			return err
		}
		if account.ResetTokenExpiresAt == nil || !now.Before(*account.ResetTokenExpiresAt) {
			return NewValidationError("invalid or expired token")
		}

		account.PasswordHash = hashed
		account.ResetTokenHash = ""
		account.ResetTokenExpiresAt = nil
		account.UpdatedAt = now
		if err := r.Accounts().Update(ctx, account); err != nil {
			return err
		}
		return r.Users().IncrementTokenVersion(ctx, account.UserID)
	})
	return wrapTxError(err)
}

func (u *AuthUsecase) Me(ctx context.Context, userID string) (UserDTO, error) {
	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return UserDTO{}, NewAuthenticationError("unauthorized")
	}
	if err != nil {
		return UserDTO{}, NewInternalError(err)
	}
	if !user.IsActive {
		return UserDTO{}, NewForbiddenError("account is deactivated")
	}
	return toUserDTO(user), nil
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// 平文 + DB保存用hash
func newRandomTokenAndHash() (plain string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	plain = base64.RawURLEncoding.EncodeToString(b)
	return plain, hashToken(plain), nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
