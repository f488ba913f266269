package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hitoshi/smilecook/internal/model"
)

const recipeColumns = `id, user_id, name, description, num_of_servings, cook_time, directions, is_publish, created_at, updated_at`

// sortColumns は並び替えに使用できるカラムのホワイトリスト。
var sortColumns = map[model.RecipeSort]string{
	model.RecipeSortCreatedAt:     "created_at",
	model.RecipeSortCookTime:      "cook_time",
	model.RecipeSortNumOfServings: "num_of_servings",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike はLIKEパターンのメタ文字をエスケープする。
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// orderClause は検索条件からORDER BY句を組み立てる。
// 同値の場合はidで並べ、ページ間で順序が揺れないようにする。
func orderClause(sort model.RecipeSort, order model.SortOrder) string {
	column, ok := sortColumns[sort]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if order == model.SortOrderAsc {
		direction = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s NULLS LAST, id %s", column, direction, direction)
}

// buildSearchQuery は公開レシピ検索のWHERE句と引数を組み立てる。
func buildSearchQuery(search model.RecipeSearch) (string, []interface{}) {
	where := " WHERE is_publish = true"
	var args []interface{}

	keyword := strings.TrimSpace(search.Keyword)
	if keyword != "" {
		args = append(args, "%"+escapeLike(keyword)+"%")
		where += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}

	return where, args
}

// buildUserListQuery はユーザー別レシピ一覧のWHERE句と引数を組み立てる。
func buildUserListQuery(userID string, visibility model.Visibility) (string, []interface{}) {
	where := " WHERE user_id = $1"
	args := []interface{}{userID}

	switch visibility {
	case model.VisibilityPrivate:
		where += " AND is_publish = false"
	case model.VisibilityAll:
	default:
		where += " AND is_publish = true"
	}

	return where, args
}

// PostgresRecipeRepo はPostgreSQLを使用したレシピリポジトリ。
type PostgresRecipeRepo struct {
	db *sql.DB
}

// NewPostgresRecipeRepo はPostgresRecipeRepoを生成する。
func NewPostgresRecipeRepo(db *sql.DB) *PostgresRecipeRepo {
	return &PostgresRecipeRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecipe(row rowScanner) (*model.Recipe, error) {
	recipe := &model.Recipe{}
	var servings, cookTime sql.NullInt64
	if err := row.Scan(
		&recipe.ID, &recipe.UserID, &recipe.Name, &recipe.Description,
		&servings, &cookTime, &recipe.Directions, &recipe.IsPublish,
		&recipe.CreatedAt, &recipe.UpdatedAt,
	); err != nil {
		return nil, err
	}
	recipe.NumOfServings = intPtr(servings)
	recipe.CookTime = intPtr(cookTime)
	return recipe, nil
}

// FindByID は指定IDのレシピを取得する。見つからない場合はnilを返す。
func (r *PostgresRecipeRepo) FindByID(ctx context.Context, id string) (*model.Recipe, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	recipe, err := scanRecipe(r.db.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe by ID: %w", err)
	}
	return recipe, nil
}

// Create はレシピを作成する。IDが空の場合は新規に採番する。
func (r *PostgresRecipeRepo) Create(ctx context.Context, recipe *model.Recipe) error {
	if recipe.ID == "" {
		recipe.ID = uuid.New().String()
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO recipes (id, user_id, name, description, num_of_servings, cook_time, directions, is_publish)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		recipe.ID, recipe.UserID, recipe.Name, recipe.Description,
		nullInt(recipe.NumOfServings), nullInt(recipe.CookTime), recipe.Directions, recipe.IsPublish,
	).Scan(&recipe.CreatedAt, &recipe.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	return nil
}

// Update はレシピの内容を上書き更新する。所有者と公開状態は変更しない。
func (r *PostgresRecipeRepo) Update(ctx context.Context, recipe *model.Recipe) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE recipes
		 SET name = $2, description = $3, num_of_servings = $4, cook_time = $5,
		     directions = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		recipe.ID, recipe.Name, recipe.Description,
		nullInt(recipe.NumOfServings), nullInt(recipe.CookTime), recipe.Directions,
	).Scan(&recipe.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrRecipeNotFound, recipe.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	return nil
}

// SetPublish は公開フラグを更新する。
func (r *PostgresRecipeRepo) SetPublish(ctx context.Context, id string, publish bool) error {
	return r.exec(ctx, "failed to update publish state",
		`UPDATE recipes SET is_publish = $2, updated_at = now() WHERE id = $1`, id, publish)
}

// Delete は指定IDのレシピを削除する。
func (r *PostgresRecipeRepo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, "failed to delete recipe", `DELETE FROM recipes WHERE id = $1`, id)
}

func (r *PostgresRecipeRepo) exec(ctx context.Context, msg, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %v", ErrRecipeNotFound, args[0])
	}
	return nil
}

// SearchPublished は公開済みレシピを検索する。
// 最終ページを超えるページ指定では空の一覧を返す。
func (r *PostgresRecipeRepo) SearchPublished(ctx context.Context, search model.RecipeSearch) (*model.RecipePage, error) {
	where, args := buildSearchQuery(search)
	return r.page(ctx, where, args, orderClause(search.Sort, search.Order), search.Pagination)
}

// ListByUser は指定ユーザーのレシピを作成日時の降順で返す。
func (r *PostgresRecipeRepo) ListByUser(ctx context.Context, userID string, visibility model.Visibility, page model.Pagination) (*model.RecipePage, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return &model.RecipePage{Recipes: []*model.Recipe{}, Pagination: page}, nil
	}
	where, args := buildUserListQuery(userID, visibility)
	return r.page(ctx, where, args, orderClause(model.RecipeSortCreatedAt, model.SortOrderDesc), page)
}

func (r *PostgresRecipeRepo) page(ctx context.Context, where string, args []interface{}, order string, p model.Pagination) (*model.RecipePage, error) {
	result := &model.RecipePage{Recipes: []*model.Recipe{}, Pagination: p}

	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM recipes`+where, args...).Scan(&result.Total); err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}
	if result.Total == 0 || p.Offset() < 0 || p.Offset() >= result.Total {
		return result, nil
	}

	query := `SELECT ` + recipeColumns + ` FROM recipes` + where + order +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, p.PerPage, p.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		result.Recipes = append(result.Recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}

	return result, nil
}

// compile-time interface check
var _ RecipeRepository = (*PostgresRecipeRepo)(nil)
