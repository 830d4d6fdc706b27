package outbox

import "github.com/google/uuid"

// DriverAssignedData is the payload for order.driver_assigned events.
type DriverAssignedData struct {
	OrderID  uuid.UUID `json:"orderId"`
	OwnerID  uuid.UUID `json:"ownerId"`
	DriverID uuid.UUID `json:"driverId"`
}

// StatusChangedData is the payload for order.status_changed events.
type StatusChangedData struct {
	OrderID  uuid.UUID  `json:"orderId"`
	OwnerID  uuid.UUID  `json:"ownerId"`
	DriverID *uuid.UUID `json:"driverId,omitempty"`
	From     string     `json:"from"`
	To       string     `json:"to"`
}
