package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/smilecook/internal/middleware"
	"github.com/hitoshi/smilecook/internal/model"
	"github.com/hitoshi/smilecook/internal/recipe"
)

// RecipeServiceInterface はレシピハンドラーが必要とするサービスインターフェース。
// recipe.Serviceが満たす。subjectIDが空文字の場合は匿名を表す。
type RecipeServiceInterface interface {
	Search(ctx context.Context, params recipe.SearchParams) (*model.RecipePage, error)
	Get(ctx context.Context, subjectID, id string) (*model.Recipe, error)
	Create(ctx context.Context, subjectID string, in recipe.CreateInput) (*model.Recipe, error)
	Update(ctx context.Context, subjectID, id string, in recipe.UpdateInput) (*model.Recipe, error)
	Delete(ctx context.Context, subjectID, id string) error
	SetPublish(ctx context.Context, subjectID, id string, publish bool) error
	ListByUser(ctx context.Context, subjectID, username, visibility string, page, perPage int) (*model.RecipePage, error)
}

// RecipeHandler はレシピ管理のHTTPハンドラー。
type RecipeHandler struct {
	service RecipeServiceInterface
}

// NewRecipeHandler はRecipeHandlerを生成する。
func NewRecipeHandler(service RecipeServiceInterface) *RecipeHandler {
	return &RecipeHandler{
		service: service,
	}
}

// createRecipeRequest はレシピ作成リクエストのボディ。
type createRecipeRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Description   string `json:"description" validate:"max=200"`
	NumOfServings *int   `json:"num_of_servings" validate:"omitempty,min=1,max=50"`
	CookTime      *int   `json:"cook_time" validate:"omitempty,min=1,max=300"`
	Directions    string `json:"directions" validate:"max=1000"`
}

// updateRecipeRequest はレシピ部分更新リクエストのボディ。省略した項目は既存の値を保持する。
type updateRecipeRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description   *string `json:"description" validate:"omitempty,max=200"`
	NumOfServings *int    `json:"num_of_servings" validate:"omitempty,min=1,max=50"`
	CookTime      *int    `json:"cook_time" validate:"omitempty,min=1,max=300"`
	Directions    *string `json:"directions" validate:"omitempty,max=1000"`
}

// recipeResponse はレシピのAPIレスポンス。
type recipeResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	NumOfServings *int      `json:"num_of_servings"`
	CookTime      *int      `json:"cook_time"`
	Directions    string    `json:"directions"`
	IsPublish     bool      `json:"is_publish"`
	UserID        string    `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toRecipeResponse(rc *model.Recipe) recipeResponse {
	return recipeResponse{
		ID:            rc.ID,
		Name:          rc.Name,
		Description:   rc.Description,
		NumOfServings: rc.NumOfServings,
		CookTime:      rc.CookTime,
		Directions:    rc.Directions,
		IsPublish:     rc.IsPublish,
		UserID:        rc.UserID,
		CreatedAt:     rc.CreatedAt,
		UpdatedAt:     rc.UpdatedAt,
	}
}

// Search は公開レシピを検索する。
// GET /recipes?q=&page=&per_page=&sort=&order=
func (h *RecipeHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := h.service.Search(r.Context(), recipe.SearchParams{
		Keyword: q.Get("q"),
		Sort:    q.Get("sort"),
		Order:   q.Get("order"),
		Page:    queryInt(q, "page"),
		PerPage: queryInt(q, "per_page"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecipePageResponse(r.URL, page))
}

// Create はレシピを作成する。作成直後は非公開。
// POST /recipes
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	rc, err := h.service.Create(r.Context(), middleware.SubjectFromContext(r.Context()), recipe.CreateInput{
		Name:          req.Name,
		Description:   req.Description,
		NumOfServings: req.NumOfServings,
		CookTime:      req.CookTime,
		Directions:    req.Directions,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRecipeResponse(rc))
}

// Get はレシピを取得する。非公開レシピは所有者のみ参照できる。
// GET /recipes/{id}
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	rc, err := h.service.Get(r.Context(), middleware.SubjectFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecipeResponse(rc))
}

// Update はレシピを部分更新する。
// PATCH /recipes/{id}
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	rc, err := h.service.Update(r.Context(), middleware.SubjectFromContext(r.Context()), chi.URLParam(r, "id"), recipe.UpdateInput{
		Name:          req.Name,
		Description:   req.Description,
		NumOfServings: req.NumOfServings,
		CookTime:      req.CookTime,
		Directions:    req.Directions,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecipeResponse(rc))
}

// Delete はレシピを削除する。
// DELETE /recipes/{id}
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.SubjectFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Publish はレシピを公開する。
// PUT /recipes/{id}/publish
func (h *RecipeHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setPublish(w, r, true)
}

// Unpublish はレシピを非公開に戻す。
// DELETE /recipes/{id}/publish
func (h *RecipeHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublish(w, r, false)
}

func (h *RecipeHandler) setPublish(w http.ResponseWriter, r *http.Request, publish bool) {
	err := h.service.SetPublish(r.Context(), middleware.SubjectFromContext(r.Context()), chi.URLParam(r, "id"), publish)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListByUser はユーザー自身のレシピを公開範囲で絞り込んで返す。
// GET /users/{username}/recipes?visibility=public|private|all&page=&per_page=
func (h *RecipeHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := h.service.ListByUser(
		r.Context(),
		middleware.SubjectFromContext(r.Context()),
		chi.URLParam(r, "username"),
		q.Get("visibility"),
		queryInt(q, "page"),
		queryInt(q, "per_page"),
	)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecipePageResponse(r.URL, page))
}
