package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

// ProductCategory is stored flat; the hierarchy is expressed through ParentID only.
type ProductCategory struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ParentID      *uuid.UUID          `gorm:"column:parent_id;type:uuid;index:product_categories_parent_id_idx"`
	Name          string              `gorm:"column:name;not null"`
	Slug          string              `gorm:"column:slug;not null;uniqueIndex:product_categories_slug_key"`
	AttributeKind enums.AttributeKind `gorm:"column:attribute_kind;type:varchar(32);not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *ProductCategory) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
