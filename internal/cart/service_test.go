package cart

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

	"github.com/freshlane/freshlane-backend/internal/products"
	"github.com/freshlane/freshlane-backend/pkg/db/models"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
)

func setupCartDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
	))
	return conn
}

func newCartService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		CartRepo:    NewRepository(conn),
		ProductRepo: products.NewRepository(conn),
	})
	require.NoError(t, err)
	return svc
}

func seedCartProduct(t *testing.T, conn *gorm.DB, name string, price string, available bool) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Available: available,
		InStock:   100,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func TestGetCartCreatesLazily(t *testing.T) {
	conn := setupCartDB(t)
	svc := newCartService(t, conn)

	dto, err := svc.GetCart(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
	assert.True(t, dto.Subtotal.IsZero())

	var count int64
	require.NoError(t, conn.Model(&models.Cart{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAddItemMergesQuantity(t *testing.T) {
	conn := setupCartDB(t)
	svc := newCartService(t, conn)

	userID := uuid.New()
	product := seedCartProduct(t, conn, "Bananas", "1.50", true)

	_, err := svc.AddItem(context.Background(), userID, product.ID, 2)
	require.NoError(t, err)

	dto, err := svc.AddItem(context.Background(), userID, product.ID, 3)
	require.NoError(t, err)

	require.Len(t, dto.Items, 1)
	assert.Equal(t, 5, dto.Items[0].Quantity)
	assert.True(t, dto.Items[0].LineTotal.Equal(decimal.RequireFromString("7.50")))
	assert.True(t, dto.Subtotal.Equal(decimal.RequireFromString("7.50")))
}

func TestAddItemValidations(t *testing.T) {
	conn := setupCartDB(t)
	svc := newCartService(t, conn)

	userID := uuid.New()
	unavailable := seedCartProduct(t, conn, "Seasonal Berries", "9.00", false)

	_, err := svc.AddItem(context.Background(), userID, unavailable.ID, 1)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.AddItem(context.Background(), userID, uuid.New(), 1)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	_, err = svc.AddItem(context.Background(), userID, unavailable.ID, 0)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestSetItemQuantity(t *testing.T) {
	conn := setupCartDB(t)
	svc := newCartService(t, conn)

	userID := uuid.New()
	product := seedCartProduct(t, conn, "Oat Milk", "3.25", true)

	_, err := svc.AddItem(context.Background(), userID, product.ID, 4)
	require.NoError(t, err)

	dto, err := svc.SetItemQuantity(context.Background(), userID, product.ID, 1)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 1, dto.Items[0].Quantity)

	// zero removes the line entirely
	dto, err = svc.SetItemQuantity(context.Background(), userID, product.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
}

func TestSetItemQuantityMissingLine(t *testing.T) {
	conn := setupCartDB(t)
	svc := newCartService(t, conn)

	userID := uuid.New()
	product := seedCartProduct(t, conn, "Greek Yogurt", "2.00", true)

	_, err := svc.SetItemQuantity(context.Background(), userID, product.ID, 2)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	conn := setupCartDB(t)
	svc := newCartService(t, conn)

	userID := uuid.New()
	product := seedCartProduct(t, conn, "Butter", "5.00", true)

	_, err := svc.AddItem(context.Background(), userID, product.ID, 1)
	require.NoError(t, err)

	dto, err := svc.RemoveItem(context.Background(), userID, product.ID)
	require.NoError(t, err)
	assert.Empty(t, dto.Items)

	dto, err = svc.RemoveItem(context.Background(), userID, product.ID)
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
}

func TestClearCart(t *testing.T) {
	conn := setupCartDB(t)
	svc := newCartService(t, conn)

	userID := uuid.New()
	first := seedCartProduct(t, conn, "Coffee", "12.00", true)
	second := seedCartProduct(t, conn, "Tea", "8.00", true)

	_, err := svc.AddItem(context.Background(), userID, first.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), userID, second.ID, 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), userID))

	dto, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
}
