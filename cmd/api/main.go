package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/solecraft/marketplace/internal/ai"
	"github.com/solecraft/marketplace/internal/config"
	"github.com/solecraft/marketplace/internal/handler"
	"github.com/solecraft/marketplace/internal/infra/db"
	infraRepo "github.com/solecraft/marketplace/internal/infra/repository"
	"github.com/solecraft/marketplace/internal/logger"
	"github.com/solecraft/marketplace/internal/mail"
	"github.com/solecraft/marketplace/internal/media"
	"github.com/solecraft/marketplace/internal/payment/vnpay"
	"github.com/solecraft/marketplace/internal/realtime"
	"github.com/solecraft/marketplace/internal/server"
	"github.com/solecraft/marketplace/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	//.envはなくてもよい（本番は環境変数）
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	if envErr != nil {
		log.Warn(".env not loaded", zap.Error(envErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	accountRepo := infraRepo.NewAccountGormRepository(gormDB)
	designRepo := infraRepo.NewDesignGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderDetailRepo := infraRepo.NewOrderDetailGormRepository(gormDB)
	walletRepo := infraRepo.NewWalletGormRepository(gormDB)
	txnRepo := infraRepo.NewWalletTransactionGormRepository(gormDB)
	feedbackRepo := infraRepo.NewFeedbackGormRepository(gormDB)
	messageRepo := infraRepo.NewMessageGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	ids := usecase.UUIDGenerator{}
	clock := usecase.SystemClock{}
	hasher := usecase.NewBcryptHasher(12)
	issuer := usecase.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	var mailer mail.Mailer = mail.NewLogMailer(cfg.MailFrom, log)
	if cfg.SMTPEnabled() {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}, log)
	} else {
		log.Warn("SMTP_HOST not set; mail is logged only")
	}
	hub := realtime.NewHub(log)
	images := media.NewImageStore(cfg.UploadDir, cfg.PublicBaseURL)

	// VNPayは設定があるときだけ
	var gateway usecase.PaymentGateway
	if cfg.VNPayEnabled() {
		gateway = vnpay.NewClient(vnpay.Config{
			TmnCode:    cfg.VNPayTmnCode,
			HashSecret: cfg.VNPayHashSecret,
			PayURL:     cfg.VNPayPayURL,
		})
	} else {
		log.Warn("vnpay is not configured; online payment disabled")
	}

	// Geminiはキーがあるときだけ
	var generator ai.DescriptionGenerator
	if cfg.GeminiAPIKey != "" {
		g, err := ai.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			return err
		}
		defer g.Close()
		generator = g
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(txm, userRepo, accountRepo, hasher, issuer, mailer, ids, clock, cfg.FEURL)
	designUC := usecase.NewDesignUsecase(designRepo, categoryRepo, generator, ids, clock, log)
	categoryUC := usecase.NewCategoryUsecase(categoryRepo, auditRepo, ids, clock)
	cartUC := usecase.NewCartUsecase(txm, cartRepo, cartRepo, designRepo)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, orderDetailRepo, gateway, ids, clock, log, usecase.OrderConfig{
		ReturnURL:   cfg.VNPayReturnURL,
		FrontendURL: cfg.FEURL,
	})
	walletUC := usecase.NewWalletUsecase(txm, walletRepo, txnRepo, gateway, ids, clock, log, usecase.WalletConfig{
		ReturnURL:   cfg.VNPayWalletReturnURL,
		FrontendURL: cfg.FEURL,
	})
	feedbackUC := usecase.NewFeedbackUsecase(feedbackRepo, orderRepo, orderDetailRepo, userRepo, ids, clock)
	chatUC := usecase.NewChatUsecase(messageRepo, userRepo, hub, images, ids, clock, log)
	adminUserUC := usecase.NewAdminUserUsecase(txm, clock)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, clock)

	//Handler生成
	handlers := server.Handlers{
		Auth:     handler.NewAuthHandler(authUC, log),
		Cart:     handler.NewCartHandler(cartUC, log),
		Design:   handler.NewDesignHandler(designUC, categoryUC, log),
		Designer: handler.NewDesignerHandler(designUC, log),
		Order:    handler.NewOrderHandler(orderUC, log),
		Wallet:   handler.NewWalletHandler(walletUC, log),
		Admin:    handler.NewAdminHandler(categoryUC, adminUserUC, adminOrderUC, log),
		Feedback: handler.NewFeedbackHandler(feedbackUC, log),
		Chat:     handler.NewChatHandler(chatUC, log),
		Realtime: handler.NewRealtimeHandler(hub, originFor(cfg), log),
	}

	//Server起動
	e := server.New(cfg, log)
	server.RegisterRoutes(e, cfg, userRepo, handlers, images.Dir())

	addr := cfg.Port
	if addr != "" && addr[0] != ':' {
		addr = ":" + addr
	}
	return server.Start(ctx, e, addr, log)
}

// devはOriginを見ない
func originFor(cfg config.Config) string {
	if cfg.IsDev() {
		return ""
	}
	return cfg.FEURL
}
