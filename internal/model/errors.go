// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Codeはクライアントが分岐に使う安定した文字列で、レスポンスのerrorフィールドに入る。
type APIError struct {
	Code     string // エラーコード（例: legal_name_required）
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, forbidden, not_found, conflict, rate_limit, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ。HTTPステータスはカテゴリから一意に決まる。
const (
	CategoryValidation = "validation"
	CategoryAuth       = "auth"
	CategoryForbidden  = "forbidden"
	CategoryNotFound   = "not_found"
	CategoryConflict   = "conflict"
	CategoryRateLimit  = "rate_limit"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeMissingToken       = "missing_token"
	ErrCodeInvalidToken       = "invalid_token"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeEmailInUse         = "email_in_use"
	ErrCodeEmailPasswordReq   = "email_and_password_required"
	ErrCodeIDTokenRequired    = "idToken_required"
	ErrCodeInvalidGoogleToken = "invalid_google_token"
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeNoFieldsToUpdate   = "no_fields_to_update"
	ErrCodeMissingFields      = "missing_fields"
	ErrCodeInvalidInput       = "invalid_input"
	ErrCodeInvalidInputSyntax = "invalid_input_syntax"
	ErrCodeInvalidReference   = "invalid_reference"
	ErrCodeNotFound           = "not_found"
	ErrCodeUserNotFound       = "user_not_found"
	ErrCodeProjectNotFound    = "project_not_found"
	ErrCodeMediaNotFound      = "media_not_found"
	ErrCodeDocumentNotFound   = "document_not_found"
	ErrCodeForbidden          = "forbidden"
	ErrCodeCoverConflict      = "cover_conflict"
	ErrCodeUploadInput        = "fileExt_and_contentType_required"
	ErrCodeS3KeyRequired      = "s3_key_required"
	ErrCodeS3KeyInvalidPrefix = "s3_key_invalid_prefix"
	ErrCodeS3KeyUnparseable   = "s3_key_required_or_unparseable_asset_url"
	ErrCodeS3KeyMismatch      = "s3_key_mismatch_with_asset_url"
	ErrCodeAssetRequired      = "asset_url_or_s3_key_required"
	ErrCodeEventTypeInvalid   = "event_type_invalid"
	ErrCodeRateLimited        = "rate_limit_exceeded"
	ErrCodeInternal           = "internal_error"
)

// NewValidationError は入力検証エラーを生成する。
// codeには失敗したフィールドを埋め込んだコード（例: name_required）を渡す。
func NewValidationError(code, message string) *APIError {
	if message == "" {
		message = "The request is invalid."
	}
	return &APIError{Code: code, Message: message, Category: CategoryValidation}
}

// NewRequiredFieldError は必須フィールド欠落エラー（<field>_required）を生成する。
func NewRequiredFieldError(field string) *APIError {
	return NewValidationError(field+"_required", fmt.Sprintf("%s is required.", field))
}

// NewNoFieldsToUpdateError は更新対象フィールドが1つもない場合のエラーを生成する。
func NewNoFieldsToUpdateError() *APIError {
	return NewValidationError(ErrCodeNoFieldsToUpdate, "No recognised fields to update.")
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return NewValidationError(ErrCodeInvalidRequest, "Request body must be a JSON object.")
}

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError(code, message string) *APIError {
	return &APIError{Code: code, Message: message, Category: CategoryAuth}
}

// NewForbiddenError は認可エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "You do not have access to this resource.",
		Category: CategoryForbidden,
	}
}

// NewNotFoundError はリソース未検出エラーを生成する。
func NewNotFoundError(code string) *APIError {
	if code == "" {
		code = ErrCodeNotFound
	}
	return &APIError{Code: code, Message: "The requested resource was not found.", Category: CategoryNotFound}
}

// NewConflictError は一意制約違反などの競合エラーを生成する。
func NewConflictError(code, message string) *APIError {
	return &APIError{Code: code, Message: message, Category: CategoryConflict}
}

// NewEmailInUseError はメールアドレス重複エラーを生成する。
func NewEmailInUseError() *APIError {
	return NewConflictError(ErrCodeEmailInUse, "Email already in use")
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return NewUnauthorizedError(ErrCodeInvalidCredentials, "Invalid credentials")
}

// NewInternalError は内部エラーのレスポンス用APIErrorを生成する。
// 詳細はログにのみ出力し、クライアントには返さない。
func NewInternalError() *APIError {
	return &APIError{Code: ErrCodeInternal, Message: "An internal error occurred.", Category: CategorySystem}
}
