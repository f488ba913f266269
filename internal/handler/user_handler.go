package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/smilecook/internal/middleware"
	"github.com/hitoshi/smilecook/internal/model"
	"github.com/hitoshi/smilecook/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
// user.Serviceが満たす。
type UserServiceInterface interface {
	// Register は未有効化のユーザーを作成し、有効化メールを発行する。
	Register(ctx context.Context, in user.RegisterInput) (*model.User, error)
	// Activate は有効化トークンを検証しユーザーを有効化する。
	Activate(ctx context.Context, rawToken string) error
	// GetByUsername はユーザー名でユーザーを取得する。
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// Me は認証済みユーザー自身を取得する。
	Me(ctx context.Context, userID string) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Username string `json:"username" validate:"required,alphanum,max=80"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// userResponse はユーザー情報のAPIレスポンス。Emailは本人にのみ返す。
type userResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	AvatarImage string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toUserResponse(u *model.User, includeEmail bool) userResponse {
	resp := userResponse{
		ID:          u.ID,
		Username:    u.Username,
		AvatarImage: u.AvatarImage,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if includeEmail {
		resp.Email = u.Email
	}
	return resp
}

// Register はユーザーを登録する。作成直後のユーザーは未有効化。
// POST /users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	u, err := h.service.Register(r.Context(), user.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u, true))
}

// Activate は有効化リンクのトークンでユーザーを有効化する。
// GET /users/activate/{token}
func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Activate(r.Context(), chi.URLParam(r, "token")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Get はユーザーのプロフィールを取得する。本人の場合のみメールアドレスを含める。
// GET /users/{username}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	self := u.ID == middleware.SubjectFromContext(r.Context())
	writeJSON(w, http.StatusOK, toUserResponse(u, self))
}

// Me は認証済みユーザー自身の情報を返す。
// GET /me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, r, model.NewUnauthorizedError("Missing Authorization Header"))
		return
	}

	u, err := h.service.Me(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u, true))
}
