package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultCORSAllowedOrigins はCORS_ALLOWED_ORIGINS未設定時に許可するオリジン。
var DefaultCORSAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"https://preview.thecarboneconomy.org",
}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL    string
	DBMaxOpenConns int

	// Credential
	JWTSecret string
	TokenTTL  time.Duration

	// Google sign-in（空の場合は無効）
	GoogleClientID string

	// Object store
	AWSRegion     string
	Bucket        string
	PublicBaseURL string
	S3Endpoint    string
	UploadURLTTL  time.Duration
	SignedReadTTL time.Duration

	// Events（空の場合はNopPublisher）
	NATSURL            string
	EventSubjectPrefix string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitAuth    int

	// Access policy
	EnforceCompanyAccess    bool
	ResolveDirectoryAvatars bool

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigins []string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		if os.Getenv("DB_HOST") == "" {
			missing = append(missing, "DATABASE_URL or DB_HOST")
		} else {
			cfg.DatabaseURL = buildDatabaseURL()
		}
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.AWSRegion = os.Getenv("AWS_REGION")
	if cfg.AWSRegion == "" {
		missing = append(missing, "AWS_REGION")
	}

	cfg.Bucket = os.Getenv("BUCKET")
	if cfg.Bucket == "" {
		missing = append(missing, "BUCKET")
	}

	cfg.PublicBaseURL = os.Getenv("PUBLIC_BASE_URL")
	if cfg.PublicBaseURL == "" {
		missing = append(missing, "PUBLIC_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 7*24*time.Hour)
	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.UploadURLTTL = getEnvDuration("UPLOAD_URL_TTL", 10*time.Minute)
	cfg.SignedReadTTL = getEnvDuration("SIGNED_READ_TTL", 10*time.Minute)
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.EventSubjectPrefix = getEnvString("EVENT_SUBJECT_PREFIX", "marketplace")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 300)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	cfg.EnforceCompanyAccess = getEnvBool("ENFORCE_COMPANY_ACCESS", false)
	cfg.ResolveDirectoryAvatars = getEnvBool("RESOLVE_DIRECTORY_AVATARS", false)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("PORT", getEnvString("SERVER_PORT", "4000"))
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", DefaultCORSAllowedOrigins)

	return cfg, nil
}

// buildDatabaseURL はDB_*環境変数から接続URLを組み立てる。
// DB_SSL=true の場合は証明書検証なしのTLS（sslmode=require）を使用する。
func buildDatabaseURL() string {
	sslMode := "disable"
	if getEnvBool("DB_SSL", false) {
		sslMode = "require"
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%s", os.Getenv("DB_HOST"), getEnvString("DB_PORT", "5432")),
		Path:     "/" + os.Getenv("DB_NAME"),
		RawQuery: "sslmode=" + sslMode,
	}
	if user := os.Getenv("DB_USER"); user != "" {
		u.User = url.UserPassword(user, os.Getenv("DB_PASSWORD"))
	}
	return u.String()
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの環境変数を空要素を除いたスライスとして返す。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
