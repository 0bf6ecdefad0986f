package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/carbonmarket/internal/middleware"
	"github.com/hitoshi/carbonmarket/internal/model"
)

// healthTimeout は/healthでのDB疎通確認の上限時間。
const healthTimeout = 2 * time.Second

// HealthChecker はDBの疎通を確認する。*sqlx.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	TokenVerifier      middleware.TokenVerifier
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	HTTPMetrics        middleware.HTTPRecorder

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	AuthService       AuthServiceInterface
	ProfileService    ProfileServiceInterface
	CompanyService    CompanyServiceInterface
	ProjectService    ProjectServiceInterface
	AttachmentService AttachmentServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → OptionalBearerAuth → RateLimit(General)
//
// 変更系のルートはすべて認証ゲートの内側に置く。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(middleware.NewOptionalBearerAuthMiddleware(deps.TokenVerifier))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.GeneralMiddleware())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, model.NewNotFoundError(""))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, model.NewValidationError("method_not_allowed", "Method not allowed."))
	})

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	gate := middleware.NewBearerAuthMiddleware(deps.TokenVerifier)
	authAttempt := func(next http.Handler) http.Handler { return next }
	if deps.RateLimiter != nil {
		authAttempt = deps.RateLimiter.AuthAttemptMiddleware()
	}

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.ProfileService)
	companyHandler := NewCompanyHandler(deps.CompanyService)
	projectHandler := NewProjectHandler(deps.ProjectService)
	userMedia := NewAttachmentHandler(deps.AttachmentService, model.OwnerUser)
	companyFiles := NewAttachmentHandler(deps.AttachmentService, model.OwnerCompany)
	projectFiles := NewAttachmentHandler(deps.AttachmentService, model.OwnerProject)

	r.Route("/auth", func(r chi.Router) {
		r.With(authAttempt).Post("/register", authHandler.Register)
		r.With(authAttempt).Post("/login", authHandler.Login)
		r.With(authAttempt).Post("/google", authHandler.Google)
		r.With(gate).Get("/me", authHandler.Me)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", userHandler.Directory)

		r.Route("/me", func(r chi.Router) {
			r.Use(gate)
			r.Get("/profile", userHandler.MyProfile)
			r.Patch("/profile", userHandler.UpsertMyProfile)
			r.Delete("/profile", userHandler.DeleteMyProfile)

			r.Route("/media", func(r chi.Router) {
				r.Get("/", userMedia.ListMedia)
				r.Post("/", userMedia.CreateMedia)
				r.Post("/upload-url", userMedia.MediaUploadURL)
				r.Patch("/{mediaId}/avatar", userMedia.SetMediaFlag)
				r.Delete("/{mediaId}", userMedia.DeleteMedia)
			})
		})

		r.Get("/{userId}", userHandler.PublicProfile)
	})

	r.Route("/companies", func(r chi.Router) {
		r.Get("/", companyHandler.List)
		r.With(gate).Get("/mycompanies", companyHandler.MyCompanies)
		r.With(gate).Post("/", companyHandler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", companyHandler.Get)
			r.Get("/users", companyHandler.ListUsers)

			r.Group(func(r chi.Router) {
				r.Use(gate)
				r.Patch("/", companyHandler.Update)
				r.Delete("/", companyHandler.Delete)
				r.Post("/users", companyHandler.AddUser)
				r.Delete("/users/{userId}", companyHandler.RemoveUser)

				mountMedia(r, companyFiles, true)
				mountDocuments(r, companyFiles)
			})
		})
	})

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", projectHandler.List)
		r.With(gate).Get("/myprojects", projectHandler.MyProjects)
		r.With(gate).Post("/", projectHandler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", projectHandler.Get)
			r.Get("/credits", projectHandler.Credits)
			// プロジェクトのメディア一覧は公開
			r.Get("/media", projectFiles.ListMedia)

			r.Group(func(r chi.Router) {
				r.Use(gate)
				r.Patch("/", projectHandler.Update)
				r.Delete("/", projectHandler.Delete)
				r.Post("/credits", projectHandler.RecordCredit)

				mountMedia(r, projectFiles, false)
				mountDocuments(r, projectFiles)
			})
		})
	})

	return r
}

// mountMedia はメディアの変更系ルートを登録する。withListがtrueなら一覧も登録する。
func mountMedia(r chi.Router, h *AttachmentHandler, withList bool) {
	if withList {
		r.Get("/media", h.ListMedia)
	}
	r.Post("/media", h.CreateMedia)
	r.Post("/media/upload-url", h.MediaUploadURL)
	r.Patch("/media/{mediaId}/cover", h.SetMediaFlag)
	r.Delete("/media/{mediaId}", h.DeleteMedia)
}

func mountDocuments(r chi.Router, h *AttachmentHandler) {
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Post("/documents/upload-url", h.DocumentUploadURL)
	r.Delete("/documents/{documentId}", h.DeleteDocument)
}

// healthHandler は{"ok":true}を返す。DBに到達できなければ503。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Warn("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
