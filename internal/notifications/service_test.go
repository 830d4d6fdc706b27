package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/outbox"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

func setupNotificationsDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(&models.Notification{}))
	return conn
}

func newNotificationsService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{Repo: NewRepository(conn)})
	require.NoError(t, err)
	return svc
}

func seedNotification(t *testing.T, conn *gorm.DB, userID uuid.UUID, read bool) *models.Notification {
	t.Helper()

	row := &models.Notification{
		UserID:  userID,
		Type:    enums.NotificationSystem,
		Title:   "Test",
		Message: "test message",
	}
	if read {
		now := time.Now()
		row.ReadAt = &now
	}
	require.NoError(t, conn.Create(row).Error)
	return row
}

func TestListNotifications(t *testing.T) {
	conn := setupNotificationsDB(t)
	svc := newNotificationsService(t, conn)

	userID := uuid.New()
	seedNotification(t, conn, userID, false)
	seedNotification(t, conn, userID, true)
	seedNotification(t, conn, uuid.New(), false)

	page, err := svc.List(context.Background(), userID, false, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(1), page.Unread)

	unreadPage, err := svc.List(context.Background(), userID, true, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, unreadPage.Items, 1)
	assert.False(t, unreadPage.Items[0].Read)
}

func TestMarkRead(t *testing.T) {
	conn := setupNotificationsDB(t)
	svc := newNotificationsService(t, conn)

	userID := uuid.New()
	row := seedNotification(t, conn, userID, false)

	require.NoError(t, svc.MarkRead(context.Background(), row.ID, userID))

	count, err := svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// marking an already-read notification is a no-op
	require.NoError(t, svc.MarkRead(context.Background(), row.ID, userID))

	err = svc.MarkRead(context.Background(), uuid.New(), userID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestMarkReadScopedToOwner(t *testing.T) {
	conn := setupNotificationsDB(t)
	svc := newNotificationsService(t, conn)

	owner := uuid.New()
	row := seedNotification(t, conn, owner, false)

	err := svc.MarkRead(context.Background(), row.ID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestMarkAllRead(t *testing.T) {
	conn := setupNotificationsDB(t)
	svc := newNotificationsService(t, conn)

	userID := uuid.New()
	seedNotification(t, conn, userID, false)
	seedNotification(t, conn, userID, false)
	seedNotification(t, conn, userID, true)

	affected, err := svc.MarkAllRead(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	count, err := svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func makeOutboxEvent(t *testing.T, eventType enums.OutboxEventType, data any) models.OutboxEvent {
	t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       raw,
	})
	require.NoError(t, err)

	return models.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
	}
}

func TestConsumerDriverAssigned(t *testing.T) {
	conn := setupNotificationsDB(t)
	consumer, err := NewConsumer(NewRepository(conn), logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)

	ownerID := uuid.New()
	driverID := uuid.New()
	orderID := uuid.New()

	event := makeOutboxEvent(t, enums.EventOrderDriverAssigned, outbox.DriverAssignedData{
		OrderID:  orderID,
		OwnerID:  ownerID,
		DriverID: driverID,
	})
	require.NoError(t, consumer.Handle(context.Background(), event))

	var rows []models.Notification
	require.NoError(t, conn.Order("created_at").Find(&rows).Error)
	require.Len(t, rows, 2)

	recipients := []uuid.UUID{rows[0].UserID, rows[1].UserID}
	assert.Contains(t, recipients, ownerID)
	assert.Contains(t, recipients, driverID)
	for _, row := range rows {
		assert.Equal(t, enums.NotificationDriverAssigned, row.Type)
		require.NotNil(t, row.OrderID)
		assert.Equal(t, orderID, *row.OrderID)
	}
}

func TestConsumerStatusChanged(t *testing.T) {
	conn := setupNotificationsDB(t)
	consumer, err := NewConsumer(NewRepository(conn), logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)

	ownerID := uuid.New()
	driverID := uuid.New()
	orderID := uuid.New()

	event := makeOutboxEvent(t, enums.EventOrderStatusChanged, outbox.StatusChangedData{
		OrderID:  orderID,
		OwnerID:  ownerID,
		DriverID: &driverID,
		From:     string(enums.OrderStatusShipped),
		To:       string(enums.OrderStatusDelivered),
	})
	require.NoError(t, consumer.Handle(context.Background(), event))

	var rows []models.Notification
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, enums.NotificationOrderDelivered, row.Type)
	}
}

func TestConsumerStatusChangedWithoutDriver(t *testing.T) {
	conn := setupNotificationsDB(t)
	consumer, err := NewConsumer(NewRepository(conn), logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)

	event := makeOutboxEvent(t, enums.EventOrderStatusChanged, outbox.StatusChangedData{
		OrderID: uuid.New(),
		OwnerID: uuid.New(),
		From:    string(enums.OrderStatusPending),
		To:      string(enums.OrderStatusCancelled),
	})
	require.NoError(t, consumer.Handle(context.Background(), event))

	var count int64
	require.NoError(t, conn.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestConsumerDropsMalformedPayload(t *testing.T) {
	conn := setupNotificationsDB(t)
	consumer, err := NewConsumer(NewRepository(conn), logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)

	event := models.OutboxEvent{
		ID:        uuid.New(),
		EventType: enums.EventOrderStatusChanged,
		Payload:   json.RawMessage(`not-json`),
	}
	require.NoError(t, consumer.Handle(context.Background(), event))

	var count int64
	require.NoError(t, conn.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateBatchIsAllOrNothing(t *testing.T) {
	conn := setupNotificationsDB(t)
	repo := NewRepository(conn)

	sharedID := uuid.New()
	rows := []*models.Notification{
		{
			ID:      sharedID,
			UserID:  uuid.New(),
			Type:    enums.NotificationSystem,
			Title:   "first",
			Message: "first row",
		},
		{
			ID:      sharedID, // collides with the first row
			UserID:  uuid.New(),
			Type:    enums.NotificationSystem,
			Title:   "second",
			Message: "second row",
		},
	}

	err := repo.CreateBatch(context.Background(), rows)
	require.Error(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count, "a failed batch must not leave partial rows behind")
}
