package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/outbox"
)

type repository interface {
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
}

// Consumer turns outbox order events into in-app notification rows. It runs
// behind the outbox dispatcher, so events only arrive after the originating
// transaction committed.
type Consumer struct {
	repo repository
	logg *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{repo: repo, logg: logg}, nil
}

// Handle implements outbox.Handler.
func (c *Consumer) Handle(ctx context.Context, event models.OutboxEvent) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"outbox_id":  event.ID.String(),
		"event_type": event.EventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		// malformed payloads never become parseable; drop them
		return nil
	}

	switch event.EventType {
	case enums.EventOrderDriverAssigned:
		var payload outbox.DriverAssignedData
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			c.logg.Error(logCtx, "failed to parse driver assignment payload", err)
			return nil
		}
		return c.handleDriverAssigned(logCtx, payload)

	case enums.EventOrderStatusChanged:
		var payload outbox.StatusChangedData
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			c.logg.Error(logCtx, "failed to parse status change payload", err)
			return nil
		}
		return c.handleStatusChanged(logCtx, payload)

	default:
		c.logg.Info(logCtx, "skipping unhandled event type")
		return nil
	}
}

func (c *Consumer) handleDriverAssigned(ctx context.Context, payload outbox.DriverAssignedData) error {
	if payload.OrderID == uuid.Nil || payload.OwnerID == uuid.Nil || payload.DriverID == uuid.Nil {
		return fmt.Errorf("driver assignment payload incomplete")
	}
	link := fmt.Sprintf("/orders/%s", payload.OrderID)

	// single batch: a retried event must not duplicate the owner's row when
	// the driver's insert failed
	rows := []*models.Notification{
		{
			UserID:  payload.OwnerID,
			Type:    enums.NotificationDriverAssigned,
			Title:   "Driver assigned",
			Message: fmt.Sprintf("A driver has been assigned to your order %s and it is on its way.", payload.OrderID),
			OrderID: &payload.OrderID,
			Link:    stringPtr(link),
		},
		{
			UserID:  payload.DriverID,
			Type:    enums.NotificationDriverAssigned,
			Title:   "New delivery assignment",
			Message: fmt.Sprintf("Order %s has been assigned to you for delivery.", payload.OrderID),
			OrderID: &payload.OrderID,
			Link:    stringPtr(link),
		},
	}
	if err := c.repo.CreateBatch(ctx, rows); err != nil {
		return err
	}

	c.logg.Info(ctx, "driver assignment notifications created")
	return nil
}

func (c *Consumer) handleStatusChanged(ctx context.Context, payload outbox.StatusChangedData) error {
	if payload.OrderID == uuid.Nil || payload.OwnerID == uuid.Nil {
		return fmt.Errorf("status change payload incomplete")
	}
	link := fmt.Sprintf("/orders/%s", payload.OrderID)

	notifType, title, ownerMessage := statusCopy(payload)

	rows := []*models.Notification{{
		UserID:  payload.OwnerID,
		Type:    notifType,
		Title:   title,
		Message: ownerMessage,
		OrderID: &payload.OrderID,
		Link:    stringPtr(link),
	}}

	if payload.DriverID != nil && *payload.DriverID != uuid.Nil {
		rows = append(rows, &models.Notification{
			UserID:  *payload.DriverID,
			Type:    notifType,
			Title:   title,
			Message: fmt.Sprintf("Order %s is now %s.", payload.OrderID, payload.To),
			OrderID: &payload.OrderID,
			Link:    stringPtr(link),
		})
	}

	if err := c.repo.CreateBatch(ctx, rows); err != nil {
		return err
	}

	c.logg.Info(ctx, "status change notifications created")
	return nil
}

func statusCopy(payload outbox.StatusChangedData) (enums.NotificationType, string, string) {
	switch enums.OrderStatus(payload.To) {
	case enums.OrderStatusShipped:
		return enums.NotificationOrderShipped, "Order shipped",
			fmt.Sprintf("Your order %s has shipped.", payload.OrderID)
	case enums.OrderStatusDelivered:
		return enums.NotificationOrderDelivered, "Order delivered",
			fmt.Sprintf("Your order %s has been delivered.", payload.OrderID)
	case enums.OrderStatusCancelled:
		return enums.NotificationOrderCancelled, "Order cancelled",
			fmt.Sprintf("Your order %s has been cancelled.", payload.OrderID)
	default:
		return enums.NotificationSystem, "Order updated",
			fmt.Sprintf("Your order %s is now %s.", payload.OrderID, payload.To)
	}
}

func stringPtr(value string) *string {
	return &value
}
