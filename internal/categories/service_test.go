package categories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
)

type stubCategoryRepo struct {
	rows    []models.ProductCategory
	created []*models.ProductCategory
}

func (s *stubCategoryRepo) List(context.Context) ([]models.ProductCategory, error) {
	return s.rows, nil
}

func (s *stubCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*models.ProductCategory, error) {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return &s.rows[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCategoryRepo) Create(_ context.Context, category *models.ProductCategory) error {
	category.ID = uuid.New()
	s.created = append(s.created, category)
	return nil
}

func (s *stubCategoryRepo) SlugTaken(context.Context, string) (bool, error) {
	return false, nil
}

func adminActor() access.Actor {
	return access.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func TestBuildTreeNestsByParent(t *testing.T) {
	root := models.ProductCategory{ID: uuid.New(), Name: "Tops", AttributeKind: enums.AttributeKindShirt}
	tees := models.ProductCategory{ID: uuid.New(), ParentID: &root.ID, Name: "Tees", AttributeKind: enums.AttributeKindTShirt}
	vneck := models.ProductCategory{ID: uuid.New(), ParentID: &tees.ID, Name: "V-neck", AttributeKind: enums.AttributeKindTShirt}
	orphanParent := uuid.New()
	orphan := models.ProductCategory{ID: uuid.New(), ParentID: &orphanParent, Name: "Lost", AttributeKind: enums.AttributeKindGeneric}

	// children listed before their parents still attach
	tree := BuildTree([]models.ProductCategory{vneck, tees, root, orphan})
	if len(tree) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(tree))
	}
	if tree[0].ID != root.ID || tree[1].ID != orphan.ID {
		t.Fatalf("unexpected roots %s, %s", tree[0].Name, tree[1].Name)
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].ID != tees.ID {
		t.Fatalf("expected tees under tops")
	}
	if len(tree[0].Children[0].Children) != 1 || tree[0].Children[0].Children[0].ID != vneck.ID {
		t.Fatalf("expected v-neck under tees")
	}
}

func TestCreateRequiresAdmin(t *testing.T) {
	svc, _ := NewService(&stubCategoryRepo{})
	seller := access.Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}

	_, err := svc.Create(context.Background(), seller, CreateCategoryInput{Name: "Tees", AttributeKind: enums.AttributeKindTShirt})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateInheritsParentKind(t *testing.T) {
	parent := models.ProductCategory{ID: uuid.New(), Name: "Shoes", AttributeKind: enums.AttributeKindShoe}
	repo := &stubCategoryRepo{rows: []models.ProductCategory{parent}}
	svc, _ := NewService(repo)

	dto, err := svc.Create(context.Background(), adminActor(), CreateCategoryInput{Name: "Running Shoes", ParentID: &parent.ID})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if dto.AttributeKind != enums.AttributeKindShoe {
		t.Fatalf("expected inherited kind, got %s", dto.AttributeKind)
	}
	if dto.Slug != "running-shoes" {
		t.Fatalf("unexpected slug %q", dto.Slug)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := NewService(&stubCategoryRepo{})
	missing := uuid.New()
	cases := map[string]struct {
		input CreateCategoryInput
		code  pkgerrors.Code
	}{
		"blank name":     {CreateCategoryInput{Name: " ", AttributeKind: enums.AttributeKindPant}, pkgerrors.CodeValidation},
		"root no kind":   {CreateCategoryInput{Name: "Pants"}, pkgerrors.CodeValidation},
		"bad kind":       {CreateCategoryInput{Name: "Pants", AttributeKind: "hat"}, pkgerrors.CodeValidation},
		"missing parent": {CreateCategoryInput{Name: "Pants", ParentID: &missing}, pkgerrors.CodeNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), adminActor(), tc.input)
			if got := pkgerrors.CodeOf(err); got != tc.code {
				t.Fatalf("expected %s got %s (%v)", tc.code, got, err)
			}
		})
	}
}
