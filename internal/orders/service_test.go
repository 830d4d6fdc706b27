package orders

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/internal/products"
	"github.com/freshlane/freshlane-backend/internal/users"
	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/outbox"
)

type sqliteTxRunner struct {
	conn *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.conn.WithContext(ctx).Transaction(fn)
}

func setupOrdersDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.OutboxEvent{},
	))
	return conn
}

func newOrdersService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	logg := logger.New(logger.Options{Output: io.Discard})
	svc, err := NewService(ServiceParams{
		DB:          sqliteTxRunner{conn: conn},
		OrderRepo:   NewRepository(conn),
		ProductRepo: products.NewRepository(conn),
		UserRepo:    users.NewRepository(conn),
		Outbox:      outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:      logg,
	})
	require.NoError(t, err)
	return svc
}

func seedUser(t *testing.T, conn *gorm.DB, role enums.Role) *models.User {
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

func seedStockedProduct(t *testing.T, conn *gorm.DB, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:    "product-" + uuid.NewString()[:8],
		Price:   decimal.RequireFromString("10.00"),
		InStock: stock,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func seedOrder(t *testing.T, conn *gorm.DB, ownerID uuid.UUID, status enums.OrderStatus, items ...models.OrderItem) *models.Order {
	t.Helper()

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	order := &models.Order{
		UserID:        ownerID,
		Items:         items,
		Subtotal:      subtotal,
		ShippingFee:   decimal.Zero,
		Total:         subtotal,
		Status:        status,
		PaymentStatus: enums.PaymentStatusUnpaid,
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func orderLine(product *models.Product, quantity int) models.OrderItem {
	lineTotal := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
	return models.OrderItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  quantity,
		LineTotal: lineTotal,
	}
}

func assertErrorCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func countEvents(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", eventType).
		Count(&count).Error)
	return count
}

func TestAssignDriverForcesShipped(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	driver := seedUser(t, conn, enums.RoleDriver)
	admin := seedUser(t, conn, enums.RoleAdmin)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusPending)

	result, err := svc.AssignDriver(context.Background(), order.ID, driver.ID, admin.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusShipped, result.Status)
	require.NotNil(t, result.DriverID)
	assert.Equal(t, driver.ID, *result.DriverID)
	assert.NotNil(t, result.AssignedAt)
	assert.Equal(t, int64(1), countEvents(t, conn, enums.EventOrderDriverAssigned))
}

func TestAssignDriverRejectsNonDriver(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	target := seedUser(t, conn, enums.RoleUser)
	admin := seedUser(t, conn, enums.RoleAdmin)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusPending)

	_, err := svc.AssignDriver(context.Background(), order.ID, target.ID, admin.ID)
	assertErrorCode(t, err, pkgerrors.CodeValidation)
}

func TestAssignDriverUnknownDriver(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	admin := seedUser(t, conn, enums.RoleAdmin)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusPending)

	_, err := svc.AssignDriver(context.Background(), order.ID, uuid.New(), admin.ID)
	assertErrorCode(t, err, pkgerrors.CodeNotFound)
}

func TestAssignDriverOnClosedOrder(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	driver := seedUser(t, conn, enums.RoleDriver)
	admin := seedUser(t, conn, enums.RoleAdmin)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusDelivered)

	_, err := svc.AssignDriver(context.Background(), order.ID, driver.ID, admin.ID)
	assertErrorCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestCancelMyOrderRestoresStock(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	product := seedStockedProduct(t, conn, 3)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusPending, orderLine(product, 2))

	result, err := svc.CancelMyOrder(context.Background(), order.ID, owner.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusCancelled, result.Status)
	assert.Nil(t, result.DriverID)
	assert.NotNil(t, result.CancelledAt)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 5, reloaded.InStock)
	assert.Equal(t, int64(1), countEvents(t, conn, enums.EventOrderStatusChanged))
}

func TestCancelMyOrderWrongOwner(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	stranger := seedUser(t, conn, enums.RoleUser)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusPending)

	_, err := svc.CancelMyOrder(context.Background(), order.ID, stranger.ID)
	assertErrorCode(t, err, pkgerrors.CodeForbidden)
}

func TestCancelMyOrderOnlyPending(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusShipped)

	_, err := svc.CancelMyOrder(context.Background(), order.ID, owner.ID)
	assertErrorCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestDriverDeliveryMarksPaidAndCreditsSales(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	driver := seedUser(t, conn, enums.RoleDriver)
	product := seedStockedProduct(t, conn, 10)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusShipped, orderLine(product, 2))
	require.NoError(t, conn.Model(order).Update("driver_id", driver.ID).Error)

	result, err := svc.DriverUpdateStatus(context.Background(), driver.ID, order.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusDelivered, result.Status)
	assert.Equal(t, enums.PaymentStatusPaid, result.PaymentStatus)
	assert.NotNil(t, result.DeliveredAt)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 2, reloaded.TotalSold)
	assert.True(t, reloaded.TotalRevenue.Equal(decimal.RequireFromString("20.00")), "revenue %s", reloaded.TotalRevenue)
	assert.Equal(t, int64(1), countEvents(t, conn, enums.EventOrderStatusChanged))

	// delivered is terminal; a second delivery attempt must not credit again
	_, err = svc.DriverUpdateStatus(context.Background(), driver.ID, order.ID, enums.OrderStatusDelivered)
	assertErrorCode(t, err, pkgerrors.CodeInvalidTransition)

	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 2, reloaded.TotalSold)
}

func TestDriverUpdateStatusNotAssigned(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	assigned := seedUser(t, conn, enums.RoleDriver)
	other := seedUser(t, conn, enums.RoleDriver)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusShipped)
	require.NoError(t, conn.Model(order).Update("driver_id", assigned.ID).Error)

	_, err := svc.DriverUpdateStatus(context.Background(), other.ID, order.ID, enums.OrderStatusDelivered)
	assertErrorCode(t, err, pkgerrors.CodeForbidden)
}

func TestDriverUpdateStatusRejectsCancel(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	driver := seedUser(t, conn, enums.RoleDriver)

	_, err := svc.DriverUpdateStatus(context.Background(), driver.ID, uuid.New(), enums.OrderStatusCancelled)
	assertErrorCode(t, err, pkgerrors.CodeValidation)
}

func TestAdminShipRequiresDriver(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	admin := seedUser(t, conn, enums.RoleAdmin)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusPending)

	_, err := svc.AdminUpdateStatus(context.Background(), order.ID, admin.ID, AdminStatusInput{
		Status: enums.OrderStatusShipped,
	})
	assertErrorCode(t, err, pkgerrors.CodeValidation)
}

func TestAdminShipWithDriver(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	driver := seedUser(t, conn, enums.RoleDriver)
	admin := seedUser(t, conn, enums.RoleAdmin)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusPending)

	result, err := svc.AdminUpdateStatus(context.Background(), order.ID, admin.ID, AdminStatusInput{
		Status:   enums.OrderStatusShipped,
		DriverID: &driver.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusShipped, result.Status)
	require.NotNil(t, result.DriverID)
	assert.Equal(t, driver.ID, *result.DriverID)
	assert.NotNil(t, result.AssignedAt)
}

func TestAdminCancelRestoresStock(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	admin := seedUser(t, conn, enums.RoleAdmin)
	product := seedStockedProduct(t, conn, 1)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusPending, orderLine(product, 4))

	result, err := svc.AdminUpdateStatus(context.Background(), order.ID, admin.ID, AdminStatusInput{
		Status: enums.OrderStatusCancelled,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, result.Status)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 5, reloaded.InStock)
}

func TestAdminUpdateStatusIllegalTransition(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	admin := seedUser(t, conn, enums.RoleAdmin)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusPending)

	// pending cannot jump straight to delivered
	_, err := svc.AdminUpdateStatus(context.Background(), order.ID, admin.ID, AdminStatusInput{
		Status: enums.OrderStatusDelivered,
	})
	assertErrorCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestGetOrderAuthorization(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	owner := seedUser(t, conn, enums.RoleUser)
	driver := seedUser(t, conn, enums.RoleDriver)
	stranger := seedUser(t, conn, enums.RoleUser)
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusShipped)
	require.NoError(t, conn.Model(order).Update("driver_id", driver.ID).Error)

	_, err := svc.GetOrder(context.Background(), order.ID, owner.ID, enums.RoleUser)
	assert.NoError(t, err)

	_, err = svc.GetOrder(context.Background(), order.ID, uuid.New(), enums.RoleAdmin)
	assert.NoError(t, err)

	_, err = svc.GetOrder(context.Background(), order.ID, driver.ID, enums.RoleDriver)
	assert.NoError(t, err)

	_, err = svc.GetOrder(context.Background(), order.ID, stranger.ID, enums.RoleUser)
	assertErrorCode(t, err, pkgerrors.CodeForbidden)
}

func TestGetOrderNotFound(t *testing.T) {
	conn := setupOrdersDB(t)
	svc := newOrdersService(t, conn)

	_, err := svc.GetOrder(context.Background(), uuid.New(), uuid.New(), enums.RoleAdmin)
	assertErrorCode(t, err, pkgerrors.CodeNotFound)
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from    enums.OrderStatus
		to      enums.OrderStatus
		allowed bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusShipped, true},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, true},
		{enums.OrderStatusPending, enums.OrderStatusDelivered, false},
		{enums.OrderStatusShipped, enums.OrderStatusDelivered, true},
		{enums.OrderStatusShipped, enums.OrderStatusCancelled, false},
		{enums.OrderStatusDelivered, enums.OrderStatusShipped, false},
		{enums.OrderStatusCancelled, enums.OrderStatusShipped, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, canTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
