// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/carbonmarket/internal/middleware"
	"github.com/hitoshi/carbonmarket/internal/model"
)

// maxBodyBytes はJSONリクエストボディの上限。
const maxBodyBytes = 1 << 20

// itemsResponse はページングしない一覧のレスポンス。
type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

func newItems[T any](items []T) itemsResponse[T] {
	if items == nil {
		items = []T{}
	}
	return itemsResponse[T]{Items: items}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをvにデコードする。失敗時は400を書き込みfalseを返す。
// 未知のフィールドは無視する。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, model.NewInvalidRequestError())
		return false
	}
	return true
}

// decodeObject はリクエストボディをキーごとの生JSONに分解する。
// 部分更新で「送られたフィールドだけ」を扱うために使う。
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, bool) {
	var body map[string]json.RawMessage
	if !decodeJSON(w, r, &body) {
		return nil, false
	}
	if body == nil {
		middleware.WriteError(w, model.NewInvalidRequestError())
		return nil, false
	}
	return body, true
}

// handleServiceError はサービス層から返されたエラーをレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteError(w, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

// requireUserID は認証済みユーザーIDを返す。ゲートの内側でのみ呼ぶ。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError(model.ErrCodeMissingToken, "Missing bearer token."))
		return "", false
	}
	return userID, true
}

// pathID はURLパスのUUIDパラメータを返す。UUIDとして解釈できなければ404を書き込む。
func pathID(w http.ResponseWriter, r *http.Request, name, notFoundCode string) (string, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		middleware.WriteError(w, model.NewNotFoundError(notFoundCode))
		return "", false
	}
	return id.String(), true
}

func pageRequest(r *http.Request, defaultPageSize int) model.PageRequest {
	q := r.URL.Query()
	return model.NewPageRequest(q.Get("page"), q.Get("pageSize"), defaultPageSize)
}
