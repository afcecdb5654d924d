package carousel

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
)

// ItemDTO is one home page slide.
type ItemDTO struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Subtitle  *string   `json:"subtitle,omitempty"`
	ImageURL  string    `json:"image_url"`
	LinkURL   *string   `json:"link_url,omitempty"`
	Position  int       `json:"position"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateItemInput adds a slide. Without Position it goes last; without IsActive it is shown.
type CreateItemInput struct {
	Title    string
	Subtitle *string
	ImageURL string
	LinkURL  *string
	Position *int
	IsActive *bool
}

// UpdateItemInput patches a slide; nil fields are left alone.
type UpdateItemInput struct {
	Title    *string
	Subtitle *string
	ImageURL *string
	LinkURL  *string
	Position *int
	IsActive *bool
}

func fromModel(item models.CarouselItem) ItemDTO {
	return ItemDTO{
		ID:        item.ID,
		Title:     item.Title,
		Subtitle:  item.Subtitle,
		ImageURL:  item.ImageURL,
		LinkURL:   item.LinkURL,
		Position:  item.Position,
		IsActive:  item.IsActive,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}
