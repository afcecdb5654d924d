package categories

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

// CategoryDTO is a node of the category tree.
type CategoryDTO struct {
	ID            uuid.UUID           `json:"id"`
	ParentID      *uuid.UUID          `json:"parent_id,omitempty"`
	Name          string              `json:"name"`
	Slug          string              `json:"slug"`
	AttributeKind enums.AttributeKind `json:"attribute_kind"`
	Children      []*CategoryDTO      `json:"children"`
}

// CreateCategoryInput holds the fields for a new category. An empty AttributeKind
// inherits the parent's kind.
type CreateCategoryInput struct {
	Name          string
	ParentID      *uuid.UUID
	AttributeKind enums.AttributeKind
}

func fromModel(m models.ProductCategory) *CategoryDTO {
	return &CategoryDTO{
		ID:            m.ID,
		ParentID:      m.ParentID,
		Name:          m.Name,
		Slug:          m.Slug,
		AttributeKind: m.AttributeKind,
		Children:      []*CategoryDTO{},
	}
}

// BuildTree links flat rows into root nodes through an id index. Rows whose parent is
// missing are promoted to roots. Input order is kept among siblings.
func BuildTree(rows []models.ProductCategory) []*CategoryDTO {
	index := make(map[uuid.UUID]*CategoryDTO, len(rows))
	for _, row := range rows {
		index[row.ID] = fromModel(row)
	}
	roots := make([]*CategoryDTO, 0)
	for _, row := range rows {
		node := index[row.ID]
		if row.ParentID != nil {
			if parent, ok := index[*row.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
