// Package policy はレシピに対するアクセス可否を判定する。
// 判定は副作用を持たない純粋関数として実装する。
package policy

import (
	"github.com/hitoshi/smilecook/internal/model"
)

// Operation はレシピに対する操作の種類。
type Operation int

const (
	OpRead Operation = iota
	OpCreate
	OpUpdate
	OpDelete
	OpPublish
	OpUnpublish
)

func (o Operation) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpPublish:
		return "publish"
	case OpUnpublish:
		return "unpublish"
	default:
		return "unknown"
	}
}

// Decision は判定結果。
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
	DenyNotFound
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyForbidden:
		return "deny_forbidden"
	case DenyNotFound:
		return "deny_not_found"
	default:
		return "unknown"
	}
}

// Policy はレシピのアクセス制御ポリシー。
// HideUnpublished がtrueの場合、匿名ユーザーによる非公開レシピの参照は404として扱う。
// falseの場合は403を返す。
type Policy struct {
	HideUnpublished bool
}

// New はPolicyを生成する。
func New(hideUnpublished bool) *Policy {
	return &Policy{HideUnpublished: hideUnpublished}
}

// Decide は操作主体(subjectID、匿名の場合は空文字)がレシピに対して操作を行えるかを判定する。
// OpCreate ではrecipeは参照しない。
func (p *Policy) Decide(op Operation, subjectID string, recipe *model.Recipe) Decision {
	if op == OpCreate {
		if subjectID == "" {
			return DenyUnauthenticated
		}
		return Allow
	}

	if recipe == nil {
		return DenyNotFound
	}

	if op == OpRead {
		if recipe.IsPublish || recipe.IsOwnedBy(subjectID) {
			return Allow
		}
		if subjectID == "" && p.HideUnpublished {
			return DenyNotFound
		}
		return DenyForbidden
	}

	// 更新系の操作
	if subjectID == "" {
		return DenyUnauthenticated
	}
	if !recipe.IsOwnedBy(subjectID) {
		return DenyForbidden
	}
	return Allow
}

// CanListUserRecipes は操作主体が対象ユーザーのレシピ一覧を参照できるかを判定する。
// 公開範囲に関わらず本人のみ許可する。
func (p *Policy) CanListUserRecipes(subjectID, targetUserID string) Decision {
	if subjectID == "" {
		return DenyUnauthenticated
	}
	if targetUserID == "" || subjectID != targetUserID {
		return DenyForbidden
	}
	return Allow
}

// Err は判定結果をAPIエラーに変換する。Allowの場合はnilを返す。
func (d Decision) Err() error {
	switch d {
	case Allow:
		return nil
	case DenyUnauthenticated:
		return model.NewUnauthorizedError("Missing or invalid token")
	case DenyNotFound:
		return model.NewRecipeNotFoundError()
	default:
		return model.NewForbiddenError()
	}
}
