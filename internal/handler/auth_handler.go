package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/carbonmarket/internal/auth"
	"github.com/hitoshi/carbonmarket/internal/middleware"
	"github.com/hitoshi/carbonmarket/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GoogleEnabled() bool
	Register(ctx context.Context, email, password string, name *string) (*auth.AuthResult, error)
	Login(ctx context.Context, email, password string) (*auth.AuthResult, error)
	Me(ctx context.Context, userID string) (*auth.Me, error)
	GoogleSignIn(ctx context.Context, idToken string) (*auth.AuthResult, error)
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

type credentialsRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

type googleRequest struct {
	IDToken string `json:"idToken"`
}

// Register はローカルユーザーを登録する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Login はメールアドレスとパスワードでログインする。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Me は認証済みユーザーの情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	me, err := h.service.Me(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

// Google はGoogleのIDトークンでサインインする。未設定の場合は404。
// POST /auth/google
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	if !h.service.GoogleEnabled() {
		middleware.WriteError(w, model.NewNotFoundError(""))
		return
	}

	var req googleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.GoogleSignIn(r.Context(), req.IDToken)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
