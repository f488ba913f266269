// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/smilecook/internal/model"
)

var (
	// ErrDuplicateEmail はメールアドレスの一意制約違反。
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrDuplicateUsername はユーザー名の一意制約違反。
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrRecipeNotFound は更新・削除対象のレシピが存在しない場合のエラー。
	ErrRecipeNotFound = errors.New("recipe not found")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は正規化済みメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	// 一意制約違反の場合は ErrDuplicateEmail または ErrDuplicateUsername を返す。
	Create(ctx context.Context, user *model.User) error

	// Activate は指定ユーザーを有効化する。既に有効な場合も成功する。
	Activate(ctx context.Context, id string) error
}

// RecipeRepository はレシピデータの永続化インターフェース。
// 各更新操作は単一のSQL文で完結し、同一レシピへの並行更新は後勝ちとなる。
type RecipeRepository interface {
	// FindByID は指定IDのレシピを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Recipe, error)

	// Create はレシピを作成し、ID・作成日時・更新日時を設定する。
	Create(ctx context.Context, recipe *model.Recipe) error

	// Update はレシピの内容を上書き更新し、updated_atを更新する。
	// 対象が存在しない場合は ErrRecipeNotFound を返す（SetPublish・Deleteも同様）。
	Update(ctx context.Context, recipe *model.Recipe) error

	// SetPublish は公開フラグを更新し、updated_atを更新する。
	SetPublish(ctx context.Context, id string, publish bool) error

	// Delete は指定IDのレシピを削除する。
	Delete(ctx context.Context, id string) error

	// SearchPublished は公開済みレシピをキーワード・並び順・ページ指定で検索する。
	// キーワードは name または description に対する大文字小文字を区別しない部分一致。
	SearchPublished(ctx context.Context, search model.RecipeSearch) (*model.RecipePage, error)

	// ListByUser は指定ユーザーのレシピを公開範囲で絞り込み、作成日時の降順で返す。
	ListByUser(ctx context.Context, userID string, visibility model.Visibility, page model.Pagination) (*model.RecipePage, error)
}

// RevokedTokenRepository は失効済みトークンのjtiを永続化するインターフェース。
// token.RevocationStore を満たす。
type RevokedTokenRepository interface {
	// Add はjtiを失効済みとして登録する。既に登録済みの場合は何もしない。
	Add(ctx context.Context, jti string, expiresAt time.Time) error

	// Contains はjtiが失効済みかどうかを返す。
	Contains(ctx context.Context, jti string) (bool, error)
}
