package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
	"github.com/freshlane/freshlane-backend/pkg/types"
)

// AdminTab filters the admin order listing.
type AdminTab string

const (
	AdminTabPending AdminTab = "pending"
	AdminTabUnpaid  AdminTab = "unpaid"
	AdminTabOpen    AdminTab = "open"
	AdminTabClosed  AdminTab = "closed"
	AdminTabAll     AdminTab = "all"
)

// IsValid reports whether the tab is one of the supported filters.
func (t AdminTab) IsValid() bool {
	switch t {
	case AdminTabPending, AdminTabUnpaid, AdminTabOpen, AdminTabClosed, AdminTabAll:
		return true
	}
	return false
}

// AdminListFilter narrows the admin order listing.
type AdminListFilter struct {
	Tab    AdminTab
	Search string
	Page   pagination.Params
}

// AdminStatusInput carries the admin override fields.
type AdminStatusInput struct {
	Status        enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	DriverID      *uuid.UUID
}

// ItemDTO is one snapshotted order line.
type ItemDTO struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     *string         `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// OrderDTO is the public projection of an order.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"userId"`
	DriverID        *uuid.UUID          `json:"driverId,omitempty"`
	Items           []ItemDTO           `json:"items"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	ShippingFee     decimal.Decimal     `json:"shippingFee"`
	Total           decimal.Decimal     `json:"total"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"paymentStatus"`
	ShippingAddress *types.Address      `json:"shippingAddress,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	AssignedAt      *time.Time          `json:"assignedAt,omitempty"`
	DeliveredAt     *time.Time          `json:"deliveredAt,omitempty"`
	CancelledAt     *time.Time          `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// OrderPageDTO is one page of orders.
type OrderPageDTO struct {
	Items      []OrderDTO      `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

// ToOrderDTO projects an order row with its items.
func ToOrderDTO(order *models.Order) OrderDTO {
	items := make([]ItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, ItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Image:     item.Image,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	return OrderDTO{
		ID:              order.ID,
		UserID:          order.UserID,
		DriverID:        order.DriverID,
		Items:           items,
		Subtotal:        order.Subtotal,
		ShippingFee:     order.ShippingFee,
		Total:           order.Total,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		ShippingAddress: order.ShippingAddress,
		Notes:           order.Notes,
		AssignedAt:      order.AssignedAt,
		DeliveredAt:     order.DeliveredAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
	}
}

func toOrderDTOs(rows []models.Order) []OrderDTO {
	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, ToOrderDTO(&rows[i]))
	}
	return items
}
