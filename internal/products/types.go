package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

// CreateInput captures the fields for a new catalog listing.
type CreateInput struct {
	Name            string
	Description     string
	Price           decimal.Decimal
	Category        string
	ImageURL        *string
	Manufacturer    string
	NutritionalInfo *string
	SKU             *string
	InStock         int
	Available       *bool
}

// UpdateInput carries optional listing fields; nil means unchanged.
type UpdateInput struct {
	Name            *string
	Description     *string
	Price           *decimal.Decimal
	Category        *string
	ImageURL        *string
	Manufacturer    *string
	NutritionalInfo *string
	SKU             *string
	InStock         *int
	Available       *bool
}

// ListFilter narrows catalog listings.
type ListFilter struct {
	Search   string
	Category string
	Page     pagination.Params
}

// ProductDTO is the public projection of a catalog listing.
type ProductDTO struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Category        string          `json:"category"`
	ImageURL        *string         `json:"imageUrl,omitempty"`
	Manufacturer    string          `json:"manufacturer,omitempty"`
	NutritionalInfo *string         `json:"nutritionalInfo,omitempty"`
	SKU             *string         `json:"sku,omitempty"`
	Available       bool            `json:"available"`
	InStock         int             `json:"inStock"`
	TotalSold       int             `json:"totalSold"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	ViewCount       int64           `json:"viewCount"`
	AverageRating   float64         `json:"averageRating"`
	ReviewCount     int             `json:"reviewCount"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ProductPageDTO is one page of catalog listings.
type ProductPageDTO struct {
	Items      []ProductDTO    `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

// CommentDTO is the public projection of a product comment.
type CommentDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func toProductDTO(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		Category:        p.Category,
		ImageURL:        p.ImageURL,
		Manufacturer:    p.Manufacturer,
		NutritionalInfo: p.NutritionalInfo,
		SKU:             p.SKU,
		Available:       p.Available,
		InStock:         p.InStock,
		TotalSold:       p.TotalSold,
		TotalRevenue:    p.TotalRevenue,
		ViewCount:       p.ViewCount,
		AverageRating:   p.AverageRating,
		ReviewCount:     p.ReviewCount,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func toProductDTOs(rows []models.Product) []ProductDTO {
	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, toProductDTO(&rows[i]))
	}
	return items
}
