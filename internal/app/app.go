package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/carbonmarket/internal/asset"
	"github.com/hitoshi/carbonmarket/internal/attachment"
	"github.com/hitoshi/carbonmarket/internal/auth"
	"github.com/hitoshi/carbonmarket/internal/company"
	"github.com/hitoshi/carbonmarket/internal/config"
	"github.com/hitoshi/carbonmarket/internal/credential"
	"github.com/hitoshi/carbonmarket/internal/database"
	"github.com/hitoshi/carbonmarket/internal/events"
	"github.com/hitoshi/carbonmarket/internal/handler"
	"github.com/hitoshi/carbonmarket/internal/logger"
	"github.com/hitoshi/carbonmarket/internal/metrics"
	"github.com/hitoshi/carbonmarket/internal/middleware"
	"github.com/hitoshi/carbonmarket/internal/profile"
	"github.com/hitoshi/carbonmarket/internal/project"
	"github.com/hitoshi/carbonmarket/internal/repository"
	"github.com/hitoshi/carbonmarket/internal/security"
)

// 起動・停止のタイムアウト。
const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		return runHealthcheck(healthcheckPort())
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// 共有リソース（DBプール、S3クライアント、NATS接続、レート制限、メトリクスレジストリ）を
// ここで1回だけ生成して各層に注入し、停止時に解放する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Ping(ctx, db, startupTimeout); err != nil {
		return err
	}
	slog.Info("database connection established")

	// 2. オブジェクトストレージ
	store, err := asset.NewS3Store(ctx, asset.S3Config{
		Region:   cfg.AWSRegion,
		Bucket:   cfg.Bucket,
		Endpoint: cfg.S3Endpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to configure object store: %w", err)
	}
	resolver := asset.NewResolver(cfg.PublicBaseURL)
	broker := asset.NewBroker(store, resolver, asset.BrokerConfig{
		UploadTTL: cfg.UploadURLTTL,
		ReadTTL:   cfg.SignedReadTTL,
	})

	// 3. イベント発行
	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// 4. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 5. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	companyRepo := repository.NewPostgresCompanyRepo(db)
	projectRepo := repository.NewPostgresProjectRepo(db)
	mediaRepo := repository.NewPostgresMediaRepo(db)
	documentRepo := repository.NewPostgresDocumentRepo(db)

	// 6. ドメインサービスの初期化
	issuer := credential.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	sanitizer := security.NewTextSanitizer()

	var google auth.GoogleVerifier
	if cfg.GoogleClientID != "" {
		discoverCtx, cancel := context.WithTimeout(ctx, startupTimeout)
		v, err := auth.NewGoogleVerifier(discoverCtx, cfg.GoogleClientID)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to configure google sign-in: %w", err)
		}
		google = v
	}
	authService := auth.NewService(userRepo, issuer, google)

	profileService := profile.NewService(profileRepo, resolver, sanitizer, profile.Options{
		ResolveDirectoryAvatars: cfg.ResolveDirectoryAvatars,
	})
	companyService := company.NewService(companyRepo, resolver, sanitizer, publisher, collector)
	projectService := project.NewService(projectRepo, resolver, sanitizer, publisher, collector)

	var access attachment.AccessChecker
	if cfg.EnforceCompanyAccess {
		access = companyService
	}
	attachmentService := attachment.NewService(mediaRepo, documentRepo, broker, access, publisher, collector)

	// 7. ルーターの構築（RATE_LIMIT_* はreq/min単位）
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:             slog.Default(),
		TokenVerifier:      issuer,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rateLimiter,
		HTTPMetrics:        collector,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		AuthService:       authService,
		ProfileService:    profileService,
		CompanyService:    companyService,
		ProjectService:    projectService,
		AttachmentService: attachmentService,
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Bool("google_sign_in", google != nil),
			slog.Bool("enforce_company_access", cfg.EnforceCompanyAccess),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newPublisher はNATS_URLが設定されていればNATSに接続し、なければNopPublisherを返す。
func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		slog.Info("NATS_URL not set; domain events are disabled")
		return events.NopPublisher{}, nil
	}
	p, err := events.Connect(cfg.NATSURL, cfg.EventSubjectPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS connection established", slog.String("subject_prefix", cfg.EventSubjectPrefix))
	return p, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// healthcheckPort はconfig.Loadと同じ優先順位（PORT, SERVER_PORT, 4000）でポートを決める。
func healthcheckPort() string {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "4000"
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
