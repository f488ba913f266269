package handler

import (
	"net/url"
	"strconv"

	"github.com/hitoshi/smilecook/internal/model"
)

// paginationLinks はページ間のリンク。存在しないページはnullになる。
type paginationLinks struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

// recipePageResponse はレシピ一覧のページ付きレスポンス。
type recipePageResponse struct {
	Links   paginationLinks  `json:"links"`
	Page    int              `json:"page"`
	Pages   int              `json:"pages"`
	PerPage int              `json:"per_page"`
	Total   int              `json:"total"`
	Data    []recipeResponse `json:"data"`
}

// pageURL は元のクエリを保ったままpageを差し替えたURLを返す。
func pageURL(base *url.URL, page int) string {
	u := *base
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.RequestURI()
}

// toRecipePageResponse はRecipePageをレスポンス形式に変換する。
func toRecipePageResponse(base *url.URL, p *model.RecipePage) recipePageResponse {
	data := make([]recipeResponse, 0, len(p.Recipes))
	for _, rc := range p.Recipes {
		data = append(data, toRecipeResponse(rc))
	}

	links := paginationLinks{
		First: pageURL(base, 1),
		Last:  pageURL(base, p.Pages()),
	}
	if p.HasPrev() {
		prev := pageURL(base, p.Page-1)
		links.Prev = &prev
	}
	if p.HasNext() {
		next := pageURL(base, p.Page+1)
		links.Next = &next
	}

	return recipePageResponse{
		Links:   links,
		Page:    p.Page,
		Pages:   p.Pages(),
		PerPage: p.PerPage,
		Total:   p.Total,
		Data:    data,
	}
}

// queryInt はクエリパラメータを整数として読む。未指定・不正値は0を返し、サービス層で既定値に丸める。
func queryInt(q url.Values, key string) int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return 0
	}
	return v
}
