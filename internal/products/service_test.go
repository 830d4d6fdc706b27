package products

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

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

func setupProductsDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&models.Product{},
		&models.ProductRating{},
		&models.ProductComment{},
		&models.ProductFavorite{},
	))
	return conn
}

func newProductsService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{Repo: NewRepository(conn)})
	require.NoError(t, err)
	return svc
}

func createListing(t *testing.T, svc Service, name string, price string, stock int) ProductDTO {
	t.Helper()

	dto, err := svc.Create(context.Background(), CreateInput{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "dairy",
		InStock:  stock,
	})
	require.NoError(t, err)
	return dto
}

func TestCreateProductValidations(t *testing.T) {
	conn := setupProductsDB(t)
	svc := newProductsService(t, conn)

	_, err := svc.Create(context.Background(), CreateInput{Name: "  "})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Create(context.Background(), CreateInput{
		Name:  "Cheddar",
		Price: decimal.RequireFromString("-1"),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateProductDuplicateName(t *testing.T) {
	conn := setupProductsDB(t)
	svc := newProductsService(t, conn)

	createListing(t, svc, "Cheddar", "4.00", 10)

	_, err := svc.Create(context.Background(), CreateInput{
		Name:  "Cheddar",
		Price: decimal.RequireFromString("5.00"),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestUpdateProductPartial(t *testing.T) {
	conn := setupProductsDB(t)
	svc := newProductsService(t, conn)

	listing := createListing(t, svc, "Gouda", "6.00", 5)

	newPrice := decimal.RequireFromString("7.50")
	updated, err := svc.Update(context.Background(), listing.ID, UpdateInput{Price: &newPrice})
	require.NoError(t, err)

	assert.True(t, updated.Price.Equal(newPrice))
	assert.Equal(t, "Gouda", updated.Name)
	assert.Equal(t, 5, updated.InStock)
}

func TestRestock(t *testing.T) {
	conn := setupProductsDB(t)
	svc := newProductsService(t, conn)

	listing := createListing(t, svc, "Brie", "9.00", 2)

	updated, err := svc.Restock(context.Background(), listing.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.InStock)

	_, err = svc.Restock(context.Background(), listing.ID, 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Restock(context.Background(), uuid.New(), 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestGetByIDBumpsViewCount(t *testing.T) {
	conn := setupProductsDB(t)
	svc := newProductsService(t, conn)

	listing := createListing(t, svc, "Feta", "3.00", 1)

	first, err := svc.GetByID(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ViewCount)

	second, err := svc.GetByID(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ViewCount)
}

func TestListSearchAndCategory(t *testing.T) {
	conn := setupProductsDB(t)
	svc := newProductsService(t, conn)

	createListing(t, svc, "Whole Milk", "2.00", 5)
	createListing(t, svc, "Almond Milk", "3.00", 5)

	_, err := svc.Create(context.Background(), CreateInput{
		Name:     "Rye Bread",
		Price:    decimal.RequireFromString("4.00"),
		Category: "bakery",
		InStock:  5,
	})
	require.NoError(t, err)

	page, err := svc.List(context.Background(), ListFilter{Search: "milk"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Pagination.Total)

	page, err = svc.ListByCategory(context.Background(), "bakery", pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Rye Bread", page.Items[0].Name)

	_, err = svc.ListByCategory(context.Background(), " ", pagination.Params{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestListTrendingOrdersBySales(t *testing.T) {
	conn := setupProductsDB(t)
	svc := newProductsService(t, conn)

	slow := createListing(t, svc, "Slow Seller", "1.00", 5)
	fast := createListing(t, svc, "Fast Seller", "1.00", 5)

	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", slow.ID).Update("total_sold", 3).Error)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", fast.ID).Update("total_sold", 30).Error)

	page, err := svc.ListTrending(context.Background(), pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Fast Seller", page.Items[0].Name)
}

func TestListOutOfStock(t *testing.T) {
	conn := setupProductsDB(t)
	svc := newProductsService(t, conn)

	createListing(t, svc, "In Stock", "1.00", 5)
	empty := createListing(t, svc, "Sold Out", "1.00", 0)

	page, err := svc.ListOutOfStock(context.Background(), pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, empty.ID, page.Items[0].ID)
}

func TestRateRecomputesAggregates(t *testing.T) {
	conn := setupProductsDB(t)
	svc := newProductsService(t, conn)

	listing := createListing(t, svc, "Kefir", "4.00", 5)
	alice := uuid.New()
	bob := uuid.New()

	dto, err := svc.Rate(context.Background(), listing.ID, alice, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, dto.ReviewCount)
	assert.InDelta(t, 5.0, dto.AverageRating, 0.001)

	dto, err = svc.Rate(context.Background(), listing.ID, bob, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, dto.ReviewCount)
	assert.InDelta(t, 3.5, dto.AverageRating, 0.001)

	// re-rating replaces the previous score instead of adding a row
	dto, err = svc.Rate(context.Background(), listing.ID, alice, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, dto.ReviewCount)
	assert.InDelta(t, 2.5, dto.AverageRating, 0.001)

	_, err = svc.Rate(context.Background(), listing.ID, alice, 6)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestFavoriteLifecycle(t *testing.T) {
	conn := setupProductsDB(t)
	svc := newProductsService(t, conn)

	listing := createListing(t, svc, "Granola", "5.00", 5)
	userID := uuid.New()

	require.NoError(t, svc.Favorite(context.Background(), listing.ID, userID))
	// favoriting twice is a no-op
	require.NoError(t, svc.Favorite(context.Background(), listing.ID, userID))

	favorites, err := svc.ListFavorites(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, listing.ID, favorites[0].ID)

	require.NoError(t, svc.Unfavorite(context.Background(), listing.ID, userID))
	favorites, err = svc.ListFavorites(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestCommentLifecycle(t *testing.T) {
	conn := setupProductsDB(t)
	svc := newProductsService(t, conn)

	listing := createListing(t, svc, "Hummus", "3.50", 5)
	userID := uuid.New()

	_, err := svc.Comment(context.Background(), listing.ID, userID, "  ")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	comment, err := svc.Comment(context.Background(), listing.ID, userID, "Great with pita.")
	require.NoError(t, err)
	assert.Equal(t, "Great with pita.", comment.Body)

	comments, err := svc.ListComments(context.Background(), listing.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, comment.ID, comments[0].ID)
}

func TestDeleteProduct(t *testing.T) {
	conn := setupProductsDB(t)
	svc := newProductsService(t, conn)

	listing := createListing(t, svc, "Tempeh", "6.00", 5)

	require.NoError(t, svc.Delete(context.Background(), listing.ID))

	_, err := svc.GetByID(context.Background(), listing.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCreateUnavailableProductStaysUnavailable(t *testing.T) {
	conn := setupProductsDB(t)
	svc := newProductsService(t, conn)

	unavailable := false
	dto, err := svc.Create(context.Background(), CreateInput{
		Name:      "Seasonal Eggnog",
		Price:     decimal.RequireFromString("5.50"),
		Category:  "dairy",
		InStock:   12,
		Available: &unavailable,
	})
	require.NoError(t, err)
	assert.False(t, dto.Available)

	var stored models.Product
	require.NoError(t, conn.First(&stored, "id = ?", dto.ID).Error)
	assert.False(t, stored.Available)
}
