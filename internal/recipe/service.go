// Package recipe はレシピの作成・参照・更新・公開・検索のドメインロジックを提供する。
package recipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/smilecook/internal/model"
	"github.com/hitoshi/smilecook/internal/policy"
	"github.com/hitoshi/smilecook/internal/repository"
	"github.com/hitoshi/smilecook/internal/security"
)

// UserFinder はユーザー名でユーザーを検索するインターフェース。
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// CreateInput はレシピ作成の入力。
type CreateInput struct {
	Name          string
	Description   string
	NumOfServings *int
	CookTime      *int
	Directions    string
}

// UpdateInput はレシピ部分更新の入力。nilの項目は既存の値を保持する。
type UpdateInput struct {
	Name          *string
	Description   *string
	NumOfServings *int
	CookTime      *int
	Directions    *string
}

// SearchParams は公開レシピ検索のクエリパラメータ。未知の値はServiceが既定値に丸める。
type SearchParams struct {
	Keyword string
	Sort    string
	Order   string
	Page    int
	PerPage int
}

// Service はレシピのサービス層。
// すべての参照・更新はpolicy.Policyの判定を経てからリポジトリに到達する。
type Service struct {
	recipes   repository.RecipeRepository
	users     UserFinder
	policy    *policy.Policy
	sanitizer security.TextSanitizer
}

// NewService はServiceを生成する。
func NewService(
	recipes repository.RecipeRepository,
	users UserFinder,
	p *policy.Policy,
	sanitizer security.TextSanitizer,
) *Service {
	return &Service{
		recipes:   recipes,
		users:     users,
		policy:    p,
		sanitizer: sanitizer,
	}
}

// Search は公開済みレシピを検索する。
func (s *Service) Search(ctx context.Context, params SearchParams) (*model.RecipePage, error) {
	search := model.RecipeSearch{
		Keyword:    params.Keyword,
		Sort:       model.ParseRecipeSort(params.Sort),
		Order:      model.ParseSortOrder(params.Order),
		Pagination: model.NormalizePagination(params.Page, params.PerPage),
	}

	page, err := s.recipes.SearchPublished(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("failed to search recipes: %w", err)
	}
	return page, nil
}

// Get はレシピを取得する。subjectIDは匿名の場合は空文字。
func (s *Service) Get(ctx context.Context, subjectID, id string) (*model.Recipe, error) {
	return s.authorize(ctx, policy.OpRead, subjectID, id)
}

// Create はsubjectIDを所有者としてレシピを作成する。作成直後は非公開。
func (s *Service) Create(ctx context.Context, subjectID string, in CreateInput) (*model.Recipe, error) {
	if err := s.policy.Decide(policy.OpCreate, subjectID, nil).Err(); err != nil {
		return nil, err
	}

	recipe := &model.Recipe{
		UserID:        subjectID,
		Name:          s.sanitizer.SanitizeText(in.Name),
		Description:   s.sanitizer.SanitizeText(in.Description),
		NumOfServings: in.NumOfServings,
		CookTime:      in.CookTime,
		Directions:    s.sanitizer.SanitizeText(in.Directions),
		IsPublish:     false,
	}
	if err := validateRecipe(recipe); err != nil {
		return nil, err
	}

	if err := s.recipes.Create(ctx, recipe); err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	slog.Info("recipe created",
		slog.String("recipe_id", recipe.ID),
		slog.String("user_id", subjectID),
	)
	return recipe, nil
}

// Update は所有者のみが実行できる部分更新。
func (s *Service) Update(ctx context.Context, subjectID, id string, in UpdateInput) (*model.Recipe, error) {
	recipe, err := s.authorize(ctx, policy.OpUpdate, subjectID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		recipe.Name = s.sanitizer.SanitizeText(*in.Name)
	}
	if in.Description != nil {
		recipe.Description = s.sanitizer.SanitizeText(*in.Description)
	}
	if in.NumOfServings != nil {
		recipe.NumOfServings = in.NumOfServings
	}
	if in.CookTime != nil {
		recipe.CookTime = in.CookTime
	}
	if in.Directions != nil {
		recipe.Directions = s.sanitizer.SanitizeText(*in.Directions)
	}
	if err := validateRecipe(recipe); err != nil {
		return nil, err
	}

	if err := s.recipes.Update(ctx, recipe); err != nil {
		return nil, writeError(err, "failed to update recipe")
	}
	return recipe, nil
}

// Delete は所有者のみが実行できる削除。
func (s *Service) Delete(ctx context.Context, subjectID, id string) error {
	if _, err := s.authorize(ctx, policy.OpDelete, subjectID, id); err != nil {
		return err
	}
	if err := s.recipes.Delete(ctx, id); err != nil {
		return writeError(err, "failed to delete recipe")
	}

	slog.Info("recipe deleted",
		slog.String("recipe_id", id),
		slog.String("user_id", subjectID),
	)
	return nil
}

// SetPublish は公開状態を切り替える。既に同じ状態でも成功する。
func (s *Service) SetPublish(ctx context.Context, subjectID, id string, publish bool) error {
	op := policy.OpUnpublish
	if publish {
		op = policy.OpPublish
	}
	if _, err := s.authorize(ctx, op, subjectID, id); err != nil {
		return err
	}
	if err := s.recipes.SetPublish(ctx, id, publish); err != nil {
		return writeError(err, "failed to set publish state")
	}
	return nil
}

// ListByUser は指定ユーザーのレシピ一覧を返す。本人のみ参照できる。
func (s *Service) ListByUser(ctx context.Context, subjectID, username, visibility string, page, perPage int) (*model.RecipePage, error) {
	if subjectID == "" {
		return nil, policy.DenyUnauthenticated.Err()
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.policy.CanListUserRecipes(subjectID, user.ID).Err(); err != nil {
		return nil, err
	}

	result, err := s.recipes.ListByUser(ctx, user.ID, model.ParseVisibility(visibility), model.NormalizePagination(page, perPage))
	if err != nil {
		return nil, fmt.Errorf("failed to list user recipes: %w", err)
	}
	return result, nil
}

// authorize はレシピを取得しポリシーで判定する。
func (s *Service) authorize(ctx context.Context, op policy.Operation, subjectID, id string) (*model.Recipe, error) {
	recipe, err := s.recipes.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}

	decision := s.policy.Decide(op, subjectID, recipe)
	if decision != policy.Allow {
		slog.Debug("recipe access denied",
			slog.String("recipe_id", id),
			slog.String("operation", op.String()),
			slog.String("decision", decision.String()),
		)
		return nil, decision.Err()
	}
	return recipe, nil
}

// writeError は書き込み時のリポジトリエラーを変換する。
// 認可後に他のリクエストで削除されていた場合は404として扱う。
func writeError(err error, msg string) error {
	if errors.Is(err, repository.ErrRecipeNotFound) {
		return model.NewRecipeNotFoundError()
	}
	return fmt.Errorf("%s: %w", msg, err)
}
