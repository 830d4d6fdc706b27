package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

// NotificationDTO is the public projection of a notification row.
type NotificationDTO struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	OrderID   *uuid.UUID             `json:"orderId,omitempty"`
	Link      *string                `json:"link,omitempty"`
	Read      bool                   `json:"read"`
	ReadAt    *time.Time             `json:"readAt,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// PageDTO is one page of notifications with the unread total.
type PageDTO struct {
	Items      []NotificationDTO `json:"items"`
	Unread     int64             `json:"unread"`
	Pagination pagination.Meta   `json:"pagination"`
}

// ServiceParams groups dependencies for the notification service.
type ServiceParams struct {
	Repo *Repository
}

// Service exposes per-user notification reads and read-state mutations.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page pagination.Params) (PageDTO, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo *Repository
}

// NewService builds a notification service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification repo is required")
	}
	return &service{repo: params.Repo}, nil
}

// List returns the user's notifications plus the unread total.
func (s *service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page pagination.Params) (PageDTO, error) {
	rows, total, err := s.repo.ListByUser(ctx, userID, unreadOnly, page)
	if err != nil {
		return PageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return PageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	items := make([]NotificationDTO, 0, len(rows))
	for i := range rows {
		items = append(items, toDTO(&rows[i]))
	}
	return PageDTO{
		Items:      items,
		Unread:     unread,
		Pagination: pagination.NewMeta(pagination.Normalize(page), total),
	}, nil
}

// MarkRead stamps a single notification; unknown ids surface as not found.
func (s *service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	affected, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if affected == 0 {
		exists, err := s.repo.Exists(ctx, id, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
	}
	return nil
}

// MarkAllRead stamps every unread notification for the user.
func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	affected, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark all notifications read")
	}
	return affected, nil
}

// UnreadCount counts the user's unread notifications.
func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func toDTO(row *models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        row.ID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		OrderID:   row.OrderID,
		Link:      row.Link,
		Read:      row.ReadAt != nil,
		ReadAt:    row.ReadAt,
		CreatedAt: row.CreatedAt,
	}
}
