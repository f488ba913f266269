package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/smilecook/internal/middleware"
	"github.com/hitoshi/smilecook/internal/model"
	"github.com/hitoshi/smilecook/internal/token"
)

// LoginServiceInterface はログイン処理のインターフェース。auth.Serviceが満たす。
type LoginServiceInterface interface {
	// Login は資格情報を検証し、有効なアカウントにトークンの組を発行する。
	Login(ctx context.Context, email, password string) (*token.Pair, error)
}

// TokenServiceInterface はトークンハンドラーが必要とするトークン操作のインターフェース。
// token.Serviceが満たす。
type TokenServiceInterface interface {
	middleware.TokenValidator
	// RefreshIdentity は検証済みリフレッシュトークンから非freshのアクセストークンを発行する。
	RefreshIdentity(id *token.Identity) (string, error)
	// RevokeIdentity は検証済みトークンのjtiを失効させる。
	RevokeIdentity(ctx context.Context, id *token.Identity) error
}

// TokenHandler はトークンの発行・更新・失効のHTTPハンドラー。
type TokenHandler struct {
	login  LoginServiceInterface
	tokens TokenServiceInterface
}

// NewTokenHandler はTokenHandlerを生成する。
func NewTokenHandler(login LoginServiceInterface, tokens TokenServiceInterface) *TokenHandler {
	return &TokenHandler{
		login:  login,
		tokens: tokens,
	}
}

// tokenRequest はトークン発行リクエストのボディ。
type tokenRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// tokenPairResponse はトークン発行レスポンス。
type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// accessTokenResponse はトークン更新レスポンス。
type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Issue はメールアドレスとパスワードでトークンの組を発行する。
// POST /token
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	pair, err := h.login.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh はリフレッシュトークンから非freshのアクセストークンを発行する。
// POST /refresh（RequireRefresh配下）
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		handleServiceError(w, r, model.NewUnauthorizedError("Missing Authorization Header"))
		return
	}

	access, err := h.tokens.RefreshIdentity(identity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: access})
}

// Revoke はリクエストに使われたトークンを失効させる。
// POST /revoke（RequireAccess配下）、POST /revoke/refresh（RequireRefresh配下）
func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		handleServiceError(w, r, model.NewUnauthorizedError("Missing Authorization Header"))
		return
	}

	if err := h.tokens.RevokeIdentity(r.Context(), identity); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Successfully logged out")
}
