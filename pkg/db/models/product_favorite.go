package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductFavorite marks a product as favorited by a user.
type ProductFavorite struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_product_favorites_product_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_product_favorites_product_user"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (f *ProductFavorite) BeforeCreate(_ *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
