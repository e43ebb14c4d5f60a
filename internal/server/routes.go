package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/solecraft/marketplace/internal/config"
	"github.com/solecraft/marketplace/internal/handler"
	"github.com/solecraft/marketplace/internal/repository"
)

// Handlers はルート登録に使う全ハンドラ
type Handlers struct {
	Auth     *handler.AuthHandler
	Cart     *handler.CartHandler
	Design   *handler.DesignHandler
	Designer *handler.DesignerHandler
	Order    *handler.OrderHandler
	Wallet   *handler.WalletHandler
	Admin    *handler.AdminHandler
	Feedback *handler.FeedbackHandler
	Chat     *handler.ChatHandler
	Realtime *handler.RealtimeHandler
}

// RegisterRoutes は /api 配下と静的ファイルを登録する
func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers, uploadDir string) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if uploadDir != "" {
		e.Static("/uploads", uploadDir)
	}

	api := e.Group("/api")
	h.Auth.RegisterRoutes(api, cfg, userRepo)
	h.Cart.RegisterRoutes(api, cfg, userRepo)
	h.Design.RegisterRoutes(api)
	h.Designer.RegisterRoutes(api, cfg, userRepo)
	h.Order.RegisterRoutes(api, cfg, userRepo)
	h.Wallet.RegisterRoutes(api, cfg, userRepo)
	h.Admin.RegisterRoutes(api, cfg, userRepo)
	h.Feedback.RegisterRoutes(api, cfg, userRepo)
	h.Chat.RegisterRoutes(api, cfg, userRepo)
	h.Realtime.RegisterRoutes(api, cfg, userRepo)
}
