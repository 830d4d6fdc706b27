package outbox

import (
	"context"
	"errors"
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

	"github.com/freshlane/freshlane-backend/pkg/config"
	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	"github.com/freshlane/freshlane-backend/pkg/logger"
)

type recordingHandler struct {
	seen []uuid.UUID
	fail map[uuid.UUID]error
}

func (h *recordingHandler) Handle(_ context.Context, event models.OutboxEvent) error {
	h.seen = append(h.seen, event.ID)
	if err, ok := h.fail[event.ID]; ok {
		return err
	}
	return nil
}

func setupOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(&models.OutboxEvent{}))
	return conn
}

func insertEvent(t *testing.T, conn *gorm.DB) models.OutboxEvent {
	t.Helper()

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1,"data":{}}`),
	}
	require.NoError(t, conn.Create(&event).Error)
	return event
}

func testDispatcher(conn *gorm.DB, handler Handler, cfg config.OutboxConfig) *Dispatcher {
	logg := logger.New(logger.Options{Output: io.Discard})
	return NewDispatcher(NewRepository(conn), handler, logg, cfg)
}

func TestProcessBatchMarksPublished(t *testing.T) {
	conn := setupOutboxDB(t)
	handler := &recordingHandler{}
	dispatcher := testDispatcher(conn, handler, config.OutboxConfig{})

	event := insertEvent(t, conn)

	processed, err := dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	require.Len(t, handler.seen, 1)
	assert.Equal(t, event.ID, handler.seen[0])

	var reloaded models.OutboxEvent
	require.NoError(t, conn.First(&reloaded, "id = ?", event.ID).Error)
	assert.NotNil(t, reloaded.PublishedAt)
	assert.Zero(t, reloaded.AttemptCount)

	// published rows are not picked up again
	processed, err = dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestProcessBatchRetriesFailures(t *testing.T) {
	conn := setupOutboxDB(t)
	event := insertEvent(t, conn)

	handler := &recordingHandler{fail: map[uuid.UUID]error{
		event.ID: errors.New("downstream unavailable"),
	}}
	dispatcher := testDispatcher(conn, handler, config.OutboxConfig{})

	processed, err := dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	var reloaded models.OutboxEvent
	require.NoError(t, conn.First(&reloaded, "id = ?", event.ID).Error)
	assert.Nil(t, reloaded.PublishedAt)
	assert.Equal(t, 1, reloaded.AttemptCount)
	require.NotNil(t, reloaded.LastError)
	assert.Contains(t, *reloaded.LastError, "downstream unavailable")

	// still unpublished, so the next batch retries it
	handler.fail = nil
	processed, err = dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	require.NoError(t, conn.First(&reloaded, "id = ?", event.ID).Error)
	assert.NotNil(t, reloaded.PublishedAt)
}

func TestProcessBatchSkipsExhaustedEvents(t *testing.T) {
	conn := setupOutboxDB(t)
	event := insertEvent(t, conn)
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("id = ?", event.ID).
		Update("attempt_count", 2).Error)

	handler := &recordingHandler{}
	dispatcher := testDispatcher(conn, handler, config.OutboxConfig{MaxAttempts: 2})

	processed, err := dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Empty(t, handler.seen)
}

func TestProcessBatchHonorsBatchSize(t *testing.T) {
	conn := setupOutboxDB(t)
	for i := 0; i < 3; i++ {
		insertEvent(t, conn)
	}

	handler := &recordingHandler{}
	dispatcher := testDispatcher(conn, handler, config.OutboxConfig{BatchSize: 2})

	processed, err := dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Len(t, handler.seen, 2)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	conn := setupOutboxDB(t)
	dispatcher := testDispatcher(conn, &recordingHandler{}, config.OutboxConfig{
		PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := dispatcher.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
