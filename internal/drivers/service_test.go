package drivers

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/internal/orders"
	"github.com/freshlane/freshlane-backend/internal/users"
	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
)

func setupDriversDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderItem{},
	))
	return conn
}

func newDriversService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		UserRepo:  users.NewRepository(conn),
		OrderRepo: orders.NewRepository(conn),
	})
	require.NoError(t, err)
	return svc
}

func seedAccount(t *testing.T, conn *gorm.DB, role enums.Role) *models.User {
	t.Helper()

	id := uuid.New()
	user := &models.User{
		ID:           id,
		Email:        id.String() + "@example.com",
		Username:     "u-" + id.String()[:8],
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func seedAssignedOrder(t *testing.T, conn *gorm.DB, ownerID, driverID uuid.UUID, status enums.OrderStatus) {
	t.Helper()

	order := &models.Order{
		UserID:        ownerID,
		DriverID:      &driverID,
		Subtotal:      decimal.Zero,
		ShippingFee:   decimal.Zero,
		Total:         decimal.Zero,
		Status:        status,
		PaymentStatus: enums.PaymentStatusUnpaid,
	}
	require.NoError(t, conn.Create(order).Error)
}

func TestGetStats(t *testing.T) {
	conn := setupDriversDB(t)
	svc := newDriversService(t, conn)

	owner := seedAccount(t, conn, enums.RoleUser)
	driver := seedAccount(t, conn, enums.RoleDriver)

	seedAssignedOrder(t, conn, owner.ID, driver.ID, enums.OrderStatusShipped)
	seedAssignedOrder(t, conn, owner.ID, driver.ID, enums.OrderStatusDelivered)
	seedAssignedOrder(t, conn, owner.ID, driver.ID, enums.OrderStatusDelivered)

	stats, err := svc.GetStats(context.Background(), driver.ID)
	require.NoError(t, err)

	assert.Equal(t, driver.ID, stats.DriverID)
	assert.Equal(t, int64(3), stats.TotalAssigned)
	assert.Equal(t, int64(2), stats.DeliveredCount)
	assert.Equal(t, int64(1), stats.ActiveCount)
}

func TestGetStatsRejectsNonDrivers(t *testing.T) {
	conn := setupDriversDB(t)
	svc := newDriversService(t, conn)

	regular := seedAccount(t, conn, enums.RoleUser)

	_, err := svc.GetStats(context.Background(), regular.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.GetStats(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestGetDetail(t *testing.T) {
	conn := setupDriversDB(t)
	svc := newDriversService(t, conn)

	driver := seedAccount(t, conn, enums.RoleDriver)

	detail, err := svc.GetDetail(context.Background(), driver.ID)
	require.NoError(t, err)
	assert.Equal(t, driver.ID, detail.Driver.ID)
	assert.Equal(t, enums.RoleDriver, detail.Driver.Role)
	assert.Zero(t, detail.Stats.TotalAssigned)
}

func TestListDrivers(t *testing.T) {
	conn := setupDriversDB(t)
	svc := newDriversService(t, conn)

	seedAccount(t, conn, enums.RoleUser)
	first := seedAccount(t, conn, enums.RoleDriver)
	second := seedAccount(t, conn, enums.RoleDriver)

	details, err := svc.ListDrivers(context.Background())
	require.NoError(t, err)
	require.Len(t, details, 2)

	ids := []uuid.UUID{details[0].Driver.ID, details[1].Driver.ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}
