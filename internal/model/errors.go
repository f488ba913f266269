// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Errors にはバリデーションエラー時のフィールド単位の詳細を格納する。
type APIError struct {
	Code    string            // エラーコード
	Message string            // エラーメッセージ
	Errors  map[string]string // フィールド名 → エラー内容（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInactiveAccount    = "INACTIVE_ACCOUNT"
	ErrCodeRecipeNotFound     = "RECIPE_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeUserExists         = "USER_EXISTS"
	ErrCodeInvalidActivation  = "INVALID_ACTIVATION_TOKEN"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewValidationError はフィールド単位の詳細を持つバリデーションエラーを生成する。
func NewValidationError(fields map[string]string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: "Validation errors",
		Errors:  fields,
	}
}

// NewInvalidRequestError はリクエストボディを解釈できない場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidRequest,
		Message: "Invalid request body",
	}
}

// NewInvalidCredentialsError はメールアドレスまたはパスワードが一致しない場合のエラーを生成する。
// ユーザーの存在有無は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidCredentials,
		Message: "email or password is incorrect",
	}
}

// NewUnauthorizedError はトークンが無い・無効・失効済みの場合のエラーを生成する。
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: reason,
	}
}

// NewForbiddenError は認証済みだが権限が無い場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:    ErrCodeForbidden,
		Message: "Access is not allowed",
	}
}

// NewInactiveAccountError は未有効化アカウントでのログイン時のエラーを生成する。
func NewInactiveAccountError() *APIError {
	return &APIError{
		Code:    ErrCodeInactiveAccount,
		Message: "The user account is not activated yet",
	}
}

// NewRecipeNotFoundError はレシピが見つからない場合のエラーを生成する。
func NewRecipeNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeRecipeNotFound,
		Message: "Recipe not found",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeUserNotFound,
		Message: "User not found",
	}
}

// NewUserExistsError はユーザー名またはメールアドレスが既に使われている場合のエラーを生成する。
func NewUserExistsError(field string) *APIError {
	return &APIError{
		Code:    ErrCodeUserExists,
		Message: fmt.Sprintf("%s already used", field),
		Errors:  map[string]string{field: "already used"},
	}
}

// NewInvalidActivationError は有効化トークンが不正または期限切れの場合のエラーを生成する。
func NewInvalidActivationError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidActivation,
		Message: "Invalid token or token expired",
	}
}

// NewRateLimitedError はレート制限超過時のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:    ErrCodeRateLimited,
		Message: "Too many requests",
	}
}
