package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
)

// ItemDTO is one cart line resolved against the live product.
type ItemDTO struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     *string         `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
	InStock   int             `json:"inStock"`
}

// CartDTO is the caller's cart with computed totals.
type CartDTO struct {
	ID       uuid.UUID       `json:"id"`
	Items    []ItemDTO       `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func toCartDTO(cart *models.Cart) CartDTO {
	items := make([]ItemDTO, 0, len(cart.Items))
	subtotal := decimal.Zero
	for _, item := range cart.Items {
		dto := ItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if item.Product != nil {
			dto.Name = item.Product.Name
			dto.Price = item.Product.Price
			dto.Image = item.Product.ImageURL
			dto.InStock = item.Product.InStock
			dto.LineTotal = item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			subtotal = subtotal.Add(dto.LineTotal)
		}
		items = append(items, dto)
	}
	return CartDTO{
		ID:       cart.ID,
		Items:    items,
		Subtotal: subtotal,
	}
}
