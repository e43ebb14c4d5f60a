package usecase_test

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/solecraft/marketplace/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

func newAuthUC(s *stack, m *recordingMailer) *usecase.AuthUsecase {
	return usecase.NewAuthUsecase(
		s.txm, s.users, s.accounts,
		plainHasher{},
		usecase.NewJWTIssuer(testJWTSecret, time.Hour),
		m, s.ids, s.clock, testFrontend+"/",
	)
}

func registerInput(userName string) usecase.RegisterInput {
	return usecase.RegisterInput{
		Name:     "Test User",
		Email:    userName + "@example.com",
		UserName: userName,
		Password: "password123",
	}
}

// =====================
// 会員登録
// =====================

func TestRegister_DefaultsToUserRole(t *testing.T) {
	s := newStack(t)
	uc := newAuthUC(s, &recordingMailer{})

	in := registerInput("taro")
	in.Email = "  Taro@Example.COM "
	got, err := uc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "USER", got.Role)
	assert.Equal(t, "taro@example.com", got.Email)
	assert.True(t, got.IsActive)
}

func TestRegister_Rejects(t *testing.T) {
	s := newStack(t)
	uc := newAuthUC(s, &recordingMailer{})
	ctx := context.Background()

	_, err := uc.Register(ctx, registerInput("taro"))
	require.NoError(t, err)

	tests := []struct {
		name string
		mod  func(in *usecase.RegisterInput)
		code string
	}{
		{"名前なし", func(in *usecase.RegisterInput) { in.Name = " " }, usecase.CodeValidation},
		{"メール不正", func(in *usecase.RegisterInput) { in.Email = "not-an-email" }, usecase.CodeValidation},
		{"ユーザー名が短い", func(in *usecase.RegisterInput) { in.UserName = "ab" }, usecase.CodeValidation},
		{"パスワードが短い", func(in *usecase.RegisterInput) { in.Password = "short" }, usecase.CodeValidation},
		{"ADMINは不可", func(in *usecase.RegisterInput) { in.Role = "ADMIN" }, usecase.CodeValidation},
		{"メール重複", func(in *usecase.RegisterInput) { in.Email = "taro@example.com" }, usecase.CodeDuplicate},
		{"ユーザー名重複", func(in *usecase.RegisterInput) { in.UserName = "taro" }, usecase.CodeDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := registerInput("hanako")
			tt.mod(&in)
			_, err := uc.Register(ctx, in)
			assert.True(t, usecase.IsCode(err, tt.code), "got %v", err)
		})
	}
}

// =====================
// ログイン
// =====================

func TestLogin_IssuesTokenWithClaims(t *testing.T) {
	s := newStack(t)
	uc := newAuthUC(s, &recordingMailer{})
	ctx := context.Background()

	in := registerInput("designer1")
	in.Role = "designer"
	user, err := uc.Register(ctx, in)
	require.NoError(t, err)

	out, err := uc.Login(ctx, usecase.LoginInput{UserName: "designer1", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, out.User.ID)

	// 固定時計で発行しているので期限検証はしない
	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(out.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	}, jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims["sub"])
	assert.Equal(t, "DESIGNER", claims["role"])
	assert.EqualValues(t, 0, claims["tv"])
}

func TestLogin_Failures(t *testing.T) {
	s := newStack(t)
	uc := newAuthUC(s, &recordingMailer{})
	ctx := context.Background()

	user, err := uc.Register(ctx, registerInput("taro"))
	require.NoError(t, err)

	_, err = uc.Login(ctx, usecase.LoginInput{UserName: "taro", Password: "wrong-password"})
	assertHTTPCode(t, err, 401, usecase.CodeUnauthorized)

	_, err = uc.Login(ctx, usecase.LoginInput{UserName: "nobody", Password: "password123"})
	assertHTTPCode(t, err, 401, usecase.CodeUnauthorized)

	_, err = uc.Login(ctx, usecase.LoginInput{})
	assertHTTPCode(t, err, 400, usecase.CodeValidation)

	require.NoError(t, s.users.SetActive(ctx, user.ID, false))
	_, err = uc.Login(ctx, usecase.LoginInput{UserName: "taro", Password: "password123"})
	assertHTTPCode(t, err, 403, usecase.CodeForbidden)
}

// =====================
// パスワード再設定
// =====================

func TestForgotAndResetPassword(t *testing.T) {
	s := newStack(t)
	m := &recordingMailer{}
	uc := newAuthUC(s, m)
	ctx := context.Background()

	user, err := uc.Register(ctx, registerInput("taro"))
	require.NoError(t, err)

	// 存在しないメールでも成功、送信なし
	require.NoError(t, uc.ForgotPassword(ctx, "nobody@example.com"))
	assert.Empty(t, m.sent)

	require.NoError(t, uc.ForgotPassword(ctx, "TARO@example.com"))
	require.Len(t, m.sent, 1)
	assert.Equal(t, "taro@example.com", m.sent[0].To)

	link := m.sent[0].Body[strings.Index(m.sent[0].Body, testFrontend):]
	assert.True(t, strings.HasPrefix(link, testFrontend+"/reset-password?token="))
	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)

	require.NoError(t, uc.ResetPassword(ctx, token, "new-password-1"))

	// トークンは使い捨て
	err = uc.ResetPassword(ctx, token, "new-password-2")
	assertHTTPCode(t, err, 400, usecase.CodeValidation)

	_, err = uc.Login(ctx, usecase.LoginInput{UserName: "taro", Password: "password123"})
	assertHTTPCode(t, err, 401, usecase.CodeUnauthorized)
	_, err = uc.Login(ctx, usecase.LoginInput{UserName: "taro", Password: "new-password-1"})
	require.NoError(t, err)

	// 既存JWTは失効する
	got, err := s.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TokenVersion)
}

func TestResetPassword_Rejects(t *testing.T) {
	s := newStack(t)
	uc := newAuthUC(s, &recordingMailer{})
	ctx := context.Background()

	assertHTTPCode(t, uc.ResetPassword(ctx, "", "new-password-1"), 400, usecase.CodeValidation)
	assertHTTPCode(t, uc.ResetPassword(ctx, "token", "short"), 400, usecase.CodeValidation)
	assertHTTPCode(t, uc.ResetPassword(ctx, "unknown-token", "new-password-1"), 400, usecase.CodeValidation)
}

func TestMe(t *testing.T) {
	s := newStack(t)
	uc := newAuthUC(s, &recordingMailer{})
	ctx := context.Background()

	user, err := uc.Register(ctx, registerInput("taro"))
	require.NoError(t, err)

	got, err := uc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = uc.Me(ctx, "missing")
	assertHTTPCode(t, err, 401, usecase.CodeUnauthorized)
}
