package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/carbonmarket/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// errorには安定したエラーコードが入り、クライアントはこれで分岐する。
type ErrorResponseBody struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// StatusForCategory はエラーカテゴリに対応するHTTPステータスを返す。
func StatusForCategory(category string) int {
	switch category {
	case model.CategoryValidation:
		return http.StatusBadRequest
	case model.CategoryAuth:
		return http.StatusUnauthorized
	case model.CategoryForbidden:
		return http.StatusForbidden
	case model.CategoryNotFound:
		return http.StatusNotFound
	case model.CategoryConflict:
		return http.StatusConflict
	case model.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteError はカテゴリから決まるステータスで統一エラーレスポンスを書き込む。
func WriteError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForCategory(apiErr.Category), apiErr)
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponseBody{
		Error:    apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
	}); err != nil {
		slog.Warn("failed to write error response", slog.String("error", err.Error()))
	}
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
