// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/carbonmarket/internal/credential"
	"github.com/hitoshi/carbonmarket/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userIDContextKey = contextKey("user_id")
	claimsContextKey = contextKey("claims")
)

// TokenVerifier はベアラートークンの検証に必要なインターフェース。
// credential.Issuerが満たす。
type TokenVerifier interface {
	Verify(token string) (*credential.Claims, error)
}

// NewBearerAuthMiddleware は Authorization: Bearer <token> を検証し、
// 主体をリクエストコンテキストに注入するミドルウェアを返す。
// ヘッダーがなければ401 missing_token、検証に失敗すれば401 invalid_tokenを返す。
func NewBearerAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 前段のOptionalBearerAuthで検証済みなら再検証しない
			if _, ok := ClaimsFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				WriteError(w, model.NewUnauthorizedError(model.ErrCodeMissingToken, "Missing bearer token."))
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				WriteError(w, model.NewUnauthorizedError(model.ErrCodeInvalidToken, "Invalid or expired token."))
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// NewOptionalBearerAuthMiddleware は有効なトークンがあれば主体を注入し、なければそのまま通す。
// レート制限とアクセスログがユーザー単位で動くように、ルーター全体の前段に置く。
func NewOptionalBearerAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if claims, err := verifier.Verify(token); err == nil {
					r = r.WithContext(ContextWithClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ClaimsFromContext は認証済みの主体を取得する。
func ClaimsFromContext(ctx context.Context) (*credential.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*credential.Claims)
	return c, ok && c != nil
}

// ContextWithClaims はコンテキストに主体を注入する。ユーザーIDも合わせて設定する。
func ContextWithClaims(ctx context.Context, claims *credential.Claims) context.Context {
	annotateUser(ctx, claims.ID)
	ctx = context.WithValue(ctx, claimsContextKey, claims)
	return context.WithValue(ctx, userIDContextKey, claims.ID)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return ContextWithClaims(ctx, &credential.Claims{ID: userID})
}
