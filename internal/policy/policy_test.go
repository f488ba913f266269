package policy

import (
	"errors"
	"testing"

	"github.com/hitoshi/smilecook/internal/model"
)

const (
	ownerID = "owner-1"
	otherID = "other-1"
)

func recipe(published bool) *model.Recipe {
	return &model.Recipe{ID: "recipe-1", UserID: ownerID, Name: "Cheese Pizza", IsPublish: published}
}

func TestDecide_Read(t *testing.T) {
	tests := []struct {
		name      string
		hide      bool
		subject   string
		published bool
		want      Decision
	}{
		{"匿名_公開", true, "", true, Allow},
		{"匿名_非公開_既定は404", true, "", false, DenyNotFound},
		{"匿名_非公開_設定で403", false, "", false, DenyForbidden},
		{"他人_公開", true, otherID, true, Allow},
		{"他人_非公開", true, otherID, false, DenyForbidden},
		{"所有者_非公開", true, ownerID, false, Allow},
		{"所有者_公開", true, ownerID, true, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.hide)
			if got := p.Decide(OpRead, tt.subject, recipe(tt.published)); got != tt.want {
				t.Errorf("Decide = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecide_Mutations(t *testing.T) {
	ops := []Operation{OpUpdate, OpDelete, OpPublish, OpUnpublish}
	p := New(true)

	for _, op := range ops {
		for _, published := range []bool{true, false} {
			r := recipe(published)
			if got := p.Decide(op, ownerID, r); got != Allow {
				t.Errorf("%v owner published=%v: got %v, want allow", op, published, got)
			}
			if got := p.Decide(op, otherID, r); got != DenyForbidden {
				t.Errorf("%v other published=%v: got %v, want forbidden", op, published, got)
			}
			if got := p.Decide(op, "", r); got != DenyUnauthenticated {
				t.Errorf("%v anonymous published=%v: got %v, want unauthenticated", op, published, got)
			}
		}
	}
}

func TestDecide_Create(t *testing.T) {
	p := New(true)
	if got := p.Decide(OpCreate, ownerID, nil); got != Allow {
		t.Errorf("authenticated create = %v, want allow", got)
	}
	if got := p.Decide(OpCreate, "", nil); got != DenyUnauthenticated {
		t.Errorf("anonymous create = %v, want unauthenticated", got)
	}
}

func TestDecide_NilRecipe_IsNotFound(t *testing.T) {
	p := New(false)
	if got := p.Decide(OpRead, ownerID, nil); got != DenyNotFound {
		t.Errorf("got %v, want not found", got)
	}
}

func TestDecide_RecipeWithoutOwner_IsNeverOwnedByAnonymous(t *testing.T) {
	p := New(true)
	r := &model.Recipe{ID: "r", UserID: ""}
	if got := p.Decide(OpUpdate, "", r); got != DenyUnauthenticated {
		t.Errorf("got %v, want unauthenticated", got)
	}
}

func TestCanListUserRecipes(t *testing.T) {
	p := New(true)
	if got := p.CanListUserRecipes(ownerID, ownerID); got != Allow {
		t.Errorf("self = %v, want allow", got)
	}
	if got := p.CanListUserRecipes(otherID, ownerID); got != DenyForbidden {
		t.Errorf("other = %v, want forbidden", got)
	}
	if got := p.CanListUserRecipes("", ownerID); got != DenyUnauthenticated {
		t.Errorf("anonymous = %v, want unauthenticated", got)
	}
}

func TestDecision_Err(t *testing.T) {
	tests := []struct {
		d    Decision
		code string
	}{
		{DenyUnauthenticated, model.ErrCodeUnauthorized},
		{DenyForbidden, model.ErrCodeForbidden},
		{DenyNotFound, model.ErrCodeRecipeNotFound},
	}
	for _, tt := range tests {
		var apiErr *model.APIError
		if !errors.As(tt.d.Err(), &apiErr) {
			t.Fatalf("%v: expected APIError", tt.d)
		}
		if apiErr.Code != tt.code {
			t.Errorf("%v: Code = %q, want %q", tt.d, apiErr.Code, tt.code)
		}
	}
	if Allow.Err() != nil {
		t.Error("Allow.Err() should be nil")
	}
}
