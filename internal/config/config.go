package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // 指定があればPOSTGRES_*より優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int

	JWTSecret      string        // JWT署名シークレット
	AccessTokenTTL time.Duration // アクセストークン有効期限

	GoEnv    string // dev/prod
	FEURL    string // フロントURL（CORSとVNPay戻り先）
	LogLevel string // debug/info/warn/error

	VNPayTmnCode         string
	VNPayHashSecret      string
	VNPayPayURL          string
	VNPayReturnURL       string // 注文決済の戻り先
	VNPayWalletReturnURL string // チャージの戻り先

	GeminiAPIKey string
	GeminiModel  string

	UploadDir     string // チャット画像の保存先
	PublicBaseURL string // 画像URLの組み立てに使う
	MailFrom      string

	// SMTP_HOSTが空ならメールはログに出すだけ
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: os.Getenv("PORT"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv:    os.Getenv("GO_ENV"),
		FEURL:    os.Getenv("FE_URL"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		VNPayTmnCode:         os.Getenv("VNPAY_TMN_CODE"),
		VNPayHashSecret:      os.Getenv("VNPAY_HASH_SECRET"),
		VNPayPayURL:          getenv("VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
		VNPayReturnURL:       os.Getenv("VNPAY_RETURN_URL"),
		VNPayWalletReturnURL: os.Getenv("VNPAY_WALLET_RETURN_URL"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getenv("GEMINI_MODEL", "gemini-1.5-flash"),

		UploadDir:     getenv("UPLOAD_DIR", "./uploads"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		MailFrom:      getenv("MAIL_FROM", "no-reply@solecraft.local"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
	}

	smtpPort, err := atoiOr("SMTP_PORT", 587)
	if err != nil {
		return Config{}, err
	}
	cfg.SMTPPort = smtpPort

	ttl, err := parseDuration("ACCESS_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.AccessTokenTTL = ttl

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.DatabaseURL == "" {
		pgPort, err := mustAtoi("POSTGRES_PORT")
		if err != nil {
			return Config{}, err
		}
		cfg.PostgresPort = pgPort

		required := map[string]string{
			"POSTGRES_USER":     cfg.PostgresUser,
			"POSTGRES_PASSWORD": cfg.PostgresPassword,
			"POSTGRES_DB":       cfg.PostgresDB,
			"POSTGRES_HOST":     cfg.PostgresHost,
		}
		for _, key := range []string{"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_HOST"} {
			if required[key] == "" {
				return Config{}, fmt.Errorf("%s is required (or set DATABASE_URL)", key)
			}
		}
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}
	if cfg.FEURL == "" {
		return Config{}, fmt.Errorf("FE_URL is required")
	}

	// 戻り先未指定ならAPI自身のコールバックを使う
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}
	if cfg.VNPayReturnURL == "" {
		cfg.VNPayReturnURL = cfg.PublicBaseURL + "/api/Order/vnpay-callback"
	}
	if cfg.VNPayWalletReturnURL == "" {
		cfg.VNPayWalletReturnURL = cfg.PublicBaseURL + "/api/wallet/vnpay-callback"
	}

	return cfg, nil
}

// DSN はgormのpostgresドライバに渡す接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort,
	)
}

func (c Config) IsDev() bool {
	return c.GoEnv == "dev"
}

func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// VNPayの設定が揃っているか
func (c Config) VNPayEnabled() bool {
	return c.VNPayTmnCode != "" && c.VNPayHashSecret != ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
