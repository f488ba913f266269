package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/smilecook/internal/middleware"
	"github.com/hitoshi/smilecook/internal/model"
	"github.com/hitoshi/smilecook/internal/recipe"
	"github.com/hitoshi/smilecook/internal/token"
	"github.com/hitoshi/smilecook/internal/user"
)

// --- モック定義 ---

type mockLoginService struct {
	loginFn func(ctx context.Context, email, password string) (*token.Pair, error)
}

func (m *mockLoginService) Login(ctx context.Context, email, password string) (*token.Pair, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, model.NewInvalidCredentialsError()
}

// mockTokenService は"access-<user>"、"refresh-<user>"形式のトークンを受け付ける。
type mockTokenService struct {
	revoked           []string
	refreshIdentityFn func(id *token.Identity) (string, error)
}

func (m *mockTokenService) Validate(ctx context.Context, raw string, kind token.Kind) (*token.Identity, error) {
	for _, k := range []token.Kind{token.KindAccess, token.KindRefresh} {
		prefix := string(k) + "-"
		if len(raw) > len(prefix) && raw[:len(prefix)] == prefix {
			if kind != "" && k != kind {
				return nil, token.ErrWrongKind
			}
			for _, jti := range m.revoked {
				if jti == raw {
					return nil, token.ErrRevokedToken
				}
			}
			return &token.Identity{UserID: raw[len(prefix):], JTI: raw, Kind: k, Fresh: k == token.KindAccess}, nil
		}
	}
	return nil, token.ErrInvalidToken
}

func (m *mockTokenService) RefreshIdentity(id *token.Identity) (string, error) {
	if m.refreshIdentityFn != nil {
		return m.refreshIdentityFn(id)
	}
	return "access-" + id.UserID, nil
}

func (m *mockTokenService) RevokeIdentity(ctx context.Context, id *token.Identity) error {
	m.revoked = append(m.revoked, id.JTI)
	return nil
}

type mockRecipeService struct {
	searchFn     func(ctx context.Context, params recipe.SearchParams) (*model.RecipePage, error)
	getFn        func(ctx context.Context, subjectID, id string) (*model.Recipe, error)
	createFn     func(ctx context.Context, subjectID string, in recipe.CreateInput) (*model.Recipe, error)
	updateFn     func(ctx context.Context, subjectID, id string, in recipe.UpdateInput) (*model.Recipe, error)
	deleteFn     func(ctx context.Context, subjectID, id string) error
	setPublishFn func(ctx context.Context, subjectID, id string, publish bool) error
	listByUserFn func(ctx context.Context, subjectID, username, visibility string, page, perPage int) (*model.RecipePage, error)
}

func (m *mockRecipeService) Search(ctx context.Context, params recipe.SearchParams) (*model.RecipePage, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, params)
	}
	return &model.RecipePage{Pagination: model.NormalizePagination(params.Page, params.PerPage)}, nil
}

func (m *mockRecipeService) Get(ctx context.Context, subjectID, id string) (*model.Recipe, error) {
	if m.getFn != nil {
		return m.getFn(ctx, subjectID, id)
	}
	return nil, model.NewRecipeNotFoundError()
}

func (m *mockRecipeService) Create(ctx context.Context, subjectID string, in recipe.CreateInput) (*model.Recipe, error) {
	if m.createFn != nil {
		return m.createFn(ctx, subjectID, in)
	}
	return &model.Recipe{ID: "recipe-1", UserID: subjectID, Name: in.Name}, nil
}

func (m *mockRecipeService) Update(ctx context.Context, subjectID, id string, in recipe.UpdateInput) (*model.Recipe, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, subjectID, id, in)
	}
	return &model.Recipe{ID: id, UserID: subjectID}, nil
}

func (m *mockRecipeService) Delete(ctx context.Context, subjectID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, subjectID, id)
	}
	return nil
}

func (m *mockRecipeService) SetPublish(ctx context.Context, subjectID, id string, publish bool) error {
	if m.setPublishFn != nil {
		return m.setPublishFn(ctx, subjectID, id, publish)
	}
	return nil
}

func (m *mockRecipeService) ListByUser(ctx context.Context, subjectID, username, visibility string, page, perPage int) (*model.RecipePage, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, subjectID, username, visibility, page, perPage)
	}
	return &model.RecipePage{Pagination: model.NormalizePagination(page, perPage)}, nil
}

type mockUserService struct {
	registerFn      func(ctx context.Context, in user.RegisterInput) (*model.User, error)
	activateFn      func(ctx context.Context, rawToken string) error
	getByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	meFn            func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockUserService) Register(ctx context.Context, in user.RegisterInput) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return &model.User{ID: "user-1", Username: in.Username, Email: in.Email}, nil
}

func (m *mockUserService) Activate(ctx context.Context, rawToken string) error {
	if m.activateFn != nil {
		return m.activateFn(ctx, rawToken)
	}
	return nil
}

func (m *mockUserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockUserService) Me(ctx context.Context, userID string) (*model.User, error) {
	if m.meFn != nil {
		return m.meFn(ctx, userID)
	}
	return &model.User{ID: userID, Username: "jack", Email: "jack@example.com"}, nil
}

// --- ヘルパー ---

func newMockRouter(recipes *mockRecipeService, users *mockUserService, login *mockLoginService, tokens *mockTokenService) *RouterDeps {
	if recipes == nil {
		recipes = &mockRecipeService{}
	}
	if users == nil {
		users = &mockUserService{}
	}
	if login == nil {
		login = &mockLoginService{}
	}
	if tokens == nil {
		tokens = &mockTokenService{}
	}
	return &RouterDeps{
		LoginService:  login,
		TokenService:  tokens,
		RecipeService: recipes,
		UserService:   users,
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode body: %v\nraw: %s", err, w.Body.String())
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	decodeBody(t, w, &body)
	return body
}
