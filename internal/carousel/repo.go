package carousel

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
)

// Repository persists home page slides.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds the carousel repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns slides by position; activeOnly hides disabled slides.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.CarouselItem, error) {
	query := r.db.WithContext(ctx).Model(&models.CarouselItem{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.CarouselItem
	err := query.Order("position ASC").Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CarouselItem, error) {
	var item models.CarouselItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// NextPosition is one past the highest position in use.
func (r *Repository) NextPosition(ctx context.Context) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).
		Model(&models.CarouselItem{}).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}

func (r *Repository) Create(ctx context.Context, item *models.CarouselItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *Repository) Save(ctx context.Context, item *models.CarouselItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete reports whether a row was removed.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CarouselItem{})
	return res.RowsAffected > 0, res.Error
}
