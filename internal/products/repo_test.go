package products

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
)

func seedCatalogRow(t *testing.T, conn *gorm.DB, name string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:      name,
		Price:     decimal.RequireFromString("3.25"),
		Category:  "produce",
		Available: true,
		InStock:   stock,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func TestDecrementStockGuardedRefusesOversell(t *testing.T) {
	conn := setupProductsDB(t)
	repo := NewRepository(conn)

	product := seedCatalogRow(t, conn, "Bananas", 2)

	affected, err := repo.DecrementStockGuarded(context.Background(), product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	var stored models.Product
	require.NoError(t, conn.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 2, stored.InStock)
}

func TestDecrementStockGuardedDrainsToZero(t *testing.T) {
	conn := setupProductsDB(t)
	repo := NewRepository(conn)

	product := seedCatalogRow(t, conn, "Apples", 2)

	affected, err := repo.DecrementStockGuarded(context.Background(), product.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	var stored models.Product
	require.NoError(t, conn.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 0, stored.InStock)

	affected, err = repo.DecrementStockGuarded(context.Background(), product.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}
