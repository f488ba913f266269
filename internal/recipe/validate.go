package recipe

import (
	"unicode/utf8"

	"github.com/hitoshi/smilecook/internal/model"
)

// 項目の上限
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 200
	MaxDirectionsLength  = 1000
	MinNumOfServings     = 1
	MaxNumOfServings     = 50
	MinCookTime          = 1
	MaxCookTime          = 300
)

// validateRecipe はサニタイズ後のレシピを検証する。
// リクエスト形式の検証はハンドラ層で済んでいるが、タグ除去で名前が空になる場合などをここで弾く。
func validateRecipe(r *model.Recipe) error {
	errs := map[string]string{}

	switch n := utf8.RuneCountInString(r.Name); {
	case n == 0:
		errs["name"] = "Field is required"
	case n > MaxNameLength:
		errs["name"] = "Longer than maximum length 100"
	}
	if utf8.RuneCountInString(r.Description) > MaxDescriptionLength {
		errs["description"] = "Longer than maximum length 200"
	}
	if utf8.RuneCountInString(r.Directions) > MaxDirectionsLength {
		errs["directions"] = "Longer than maximum length 1000"
	}
	if v := r.NumOfServings; v != nil && (*v < MinNumOfServings || *v > MaxNumOfServings) {
		errs["num_of_servings"] = "Number of servings must be between 1 and 50"
	}
	if v := r.CookTime; v != nil && (*v < MinCookTime || *v > MaxCookTime) {
		errs["cook_time"] = "Cook time must be between 1 and 300"
	}

	if len(errs) > 0 {
		return model.NewValidationError(errs)
	}
	return nil
}
