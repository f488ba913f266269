// Package model はドメインモデルを定義する。
package model

import (
	"math"
	"time"
)

// Recipe はユーザーが投稿したレシピを表す。
// IsPublish が false の間は所有者以外に公開されない。
type Recipe struct {
	ID            string
	UserID        string // 所有者
	Name          string
	Description   string
	NumOfServings *int
	CookTime      *int // 分
	Directions    string
	IsPublish     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsOwnedBy は指定ユーザーがレシピの所有者かどうかを返す。
func (r *Recipe) IsOwnedBy(userID string) bool {
	return userID != "" && r.UserID == userID
}

// RecipeSort はレシピ検索の並び替え対象カラムを表す。
type RecipeSort string

const (
	// RecipeSortCreatedAt は作成日時で並び替える（デフォルト）。
	RecipeSortCreatedAt RecipeSort = "created_at"
	// RecipeSortCookTime は調理時間で並び替える。
	RecipeSortCookTime RecipeSort = "cook_time"
	// RecipeSortNumOfServings は人数で並び替える。
	RecipeSortNumOfServings RecipeSort = "num_of_servings"
)

// ParseRecipeSort は文字列を RecipeSort に変換する。
// 未知の値はエラーにせず RecipeSortCreatedAt にフォールバックする。
func ParseRecipeSort(s string) RecipeSort {
	switch RecipeSort(s) {
	case RecipeSortCreatedAt, RecipeSortCookTime, RecipeSortNumOfServings:
		return RecipeSort(s)
	case "createdAt":
		return RecipeSortCreatedAt
	case "cookTime":
		return RecipeSortCookTime
	case "numServings", "numOfServings":
		return RecipeSortNumOfServings
	default:
		return RecipeSortCreatedAt
	}
}

// SortOrder は並び順を表す。
type SortOrder string

const (
	// SortOrderAsc は昇順。
	SortOrderAsc SortOrder = "asc"
	// SortOrderDesc は降順（デフォルト）。
	SortOrderDesc SortOrder = "desc"
)

// ParseSortOrder は文字列を SortOrder に変換する。未知の値は SortOrderDesc になる。
func ParseSortOrder(s string) SortOrder {
	if SortOrder(s) == SortOrderAsc {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// Visibility はユーザー別レシピ一覧の公開範囲フィルタを表す。
type Visibility string

const (
	// VisibilityPublic は公開済みレシピのみ。
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate は非公開レシピのみ。
	VisibilityPrivate Visibility = "private"
	// VisibilityAll は全レシピ。
	VisibilityAll Visibility = "all"
)

// ParseVisibility は文字列を Visibility に変換する。未知の値は VisibilityPublic になる。
func ParseVisibility(s string) Visibility {
	switch Visibility(s) {
	case VisibilityPrivate, VisibilityAll:
		return Visibility(s)
	default:
		return VisibilityPublic
	}
}

// ページネーションの既定値
const (
	DefaultPerPage = 20
	MaxPerPage     = 100

	// MaxPage はOFFSETがint32に収まる上限。これを超えるページは常に空になる。
	MaxPage = math.MaxInt32 / MaxPerPage
)

// Pagination はオフセットベースのページ指定を表す。Page は1始まり。
type Pagination struct {
	Page    int
	PerPage int
}

// NormalizePagination は範囲外の値を既定値に丸めたPaginationを返す。
func NormalizePagination(page, perPage int) Pagination {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Pagination{Page: page, PerPage: perPage}
}

// Offset はSQLのOFFSET値を返す。
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// RecipeSearch は公開レシピ検索の条件を表す。
type RecipeSearch struct {
	Keyword string
	Sort    RecipeSort
	Order   SortOrder
	Pagination
}

// RecipePage はページ単位のレシピ一覧を表す。
// 最終ページを超えるページを要求した場合、Recipes は空で Total は全件数のまま。
type RecipePage struct {
	Recipes []*Recipe
	Total   int
	Pagination
}

// Pages は総ページ数を返す。件数が0の場合も1ページとして扱う。
func (p *RecipePage) Pages() int {
	if p.Total == 0 || p.PerPage == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// HasPrev は前のページが存在するかを返す。
func (p *RecipePage) HasPrev() bool {
	return p.Page > 1
}

// HasNext は次のページが存在するかを返す。
func (p *RecipePage) HasNext() bool {
	return p.Page < p.Pages()
}
