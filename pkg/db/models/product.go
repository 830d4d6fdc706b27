package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the canonical catalog listing. The sales counters (TotalSold,
// TotalRevenue, ViewCount) are maintained by the order and catalog workflows
// with incremental updates only, never read-modify-write.
type Product struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name            string          `gorm:"column:name;type:text;not null;uniqueIndex"`
	Description     string          `gorm:"column:description;type:text;not null"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Category        string          `gorm:"column:category;type:text;not null;index"`
	ImageURL        *string         `gorm:"column:image_url"`
	Manufacturer    string          `gorm:"column:manufacturer;type:text"`
	NutritionalInfo *string         `gorm:"column:nutritional_info"`
	SKU             *string         `gorm:"column:sku;uniqueIndex"`
	// No gorm default tag here: with one, Create omits a false value and the
	// column default silently flips it back to true. The column-level default
	// lives in the migration for raw inserts only.
	Available       bool            `gorm:"column:available;not null"`
	InStock         int             `gorm:"column:in_stock;not null;default:0"`
	TotalSold       int             `gorm:"column:total_sold;not null;default:0"`
	TotalRevenue    decimal.Decimal `gorm:"column:total_revenue;type:numeric(14,2);not null;default:0"`
	ViewCount       int64           `gorm:"column:view_count;not null;default:0"`
	AverageRating   float64         `gorm:"column:average_rating;not null;default:0"`
	ReviewCount     int             `gorm:"column:review_count;not null;default:0"`
	Ratings         []ProductRating `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Comments        []ProductComment `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Favorites       []ProductFavorite `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
