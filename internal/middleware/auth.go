// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/smilecook/internal/model"
	"github.com/hitoshi/smilecook/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// identityContextKey は検証済みトークンの主体を格納するキー。
	identityContextKey = contextKey("identity")
	// userIDContextKey はユーザーIDを格納するキー。
	userIDContextKey = contextKey("user_id")
)

// TokenValidator はトークン検証インターフェース。token.Serviceが満たす。
type TokenValidator interface {
	Validate(ctx context.Context, raw string, kind token.Kind) (*token.Identity, error)
}

// errMalformedHeader はAuthorizationヘッダーがBearer形式でない場合のエラー。
var errMalformedHeader = errors.New("malformed authorization header")

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// ヘッダーが無い場合は空文字とnilを返す。
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", nil
	}
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return "", errMalformedHeader
	}
	return strings.TrimSpace(raw), nil
}

// unauthorizedMessage は検証エラーをクライアント向けのメッセージに変換する。
func unauthorizedMessage(err error, kind token.Kind) string {
	switch {
	case errors.Is(err, errMalformedHeader):
		return "Bad Authorization header. Expected 'Authorization: Bearer <JWT>'"
	case errors.Is(err, token.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, token.ErrRevokedToken):
		return "Token has been revoked"
	case errors.Is(err, token.ErrWrongKind):
		return fmt.Sprintf("Only %s tokens are allowed", kind)
	default:
		return "Invalid token"
	}
}

// isRejection はトークン自体の不備による検証失敗かどうかを返す。
func isRejection(err error) bool {
	for _, target := range []error{
		errMalformedHeader,
		token.ErrInvalidToken,
		token.ErrExpiredToken,
		token.ErrRevokedToken,
		token.ErrWrongKind,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// authenticate はトークンを検証し、成功時はIdentityをコンテキストに注入したリクエストを返す。
// optionalがtrueの場合、ヘッダー無しは匿名として通過させる。
func authenticate(v TokenValidator, kind token.Kind, optional bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err == nil && raw == "" {
				if optional {
					next.ServeHTTP(w, r)
					return
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("Missing Authorization Header"))
				return
			}

			var identity *token.Identity
			if err == nil {
				identity, err = v.Validate(r.Context(), raw, kind)
			}
			if err != nil {
				if !isRejection(err) {
					// 失効ストアの障害はトークン不正と区別する
					slog.Error("failed to validate token", slog.String("error", err.Error()))
					WriteInternalServerError(w)
					return
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(unauthorizedMessage(err, kind)))
				return
			}

			setLoggedUserID(r.Context(), identity.UserID)
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAccess は有効なアクセストークンを必須とするミドルウェアを返す。
func RequireAccess(v TokenValidator) func(next http.Handler) http.Handler {
	return authenticate(v, token.KindAccess, false)
}

// OptionalAccess はアクセストークンを任意とするミドルウェアを返す。
// ヘッダー無しは匿名として通過させ、不正なトークンは401とする。
func OptionalAccess(v TokenValidator) func(next http.Handler) http.Handler {
	return authenticate(v, token.KindAccess, true)
}

// RequireRefresh は有効なリフレッシュトークンを必須とするミドルウェアを返す。
func RequireRefresh(v TokenValidator) func(next http.Handler) http.Handler {
	return authenticate(v, token.KindRefresh, false)
}

// RequireFresh は資格情報から直接発行されたアクセストークンを要求するミドルウェアを返す。
// RequireAccessの後に配置する。
func RequireFresh() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("Missing Authorization Header"))
				return
			}
			if !identity.Fresh {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("Fresh token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext は認証ミドルウェアが注入したIdentityを取得する。
func IdentityFromContext(ctx context.Context) (*token.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*token.Identity)
	return identity, ok && identity != nil
}

// ContextWithIdentity はコンテキストにIdentityとユーザーIDを注入する。
func ContextWithIdentity(ctx context.Context, identity *token.Identity) context.Context {
	ctx = context.WithValue(ctx, identityContextKey, identity)
	return context.WithValue(ctx, userIDContextKey, identity.UserID)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// SubjectFromContext は認証済みならユーザーID、匿名なら空文字を返す。
func SubjectFromContext(ctx context.Context) string {
	userID, _ := UserIDFromContext(ctx)
	return userID
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
