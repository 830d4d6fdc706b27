package products

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

// Repository encapsulates catalog persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a product repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// List returns a filtered catalog page ordered newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Product, int64, error) {
	page := pagination.Normalize(filter.Page)

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&rows).Error
	return rows, total, err
}

// listOrdered returns a page ordered by the given clause, available rows only.
func (r *Repository) listOrdered(ctx context.Context, order string, page pagination.Params, extraWhere string, args ...any) ([]models.Product, int64, error) {
	page = pagination.Normalize(page)

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if extraWhere != "" {
		query = query.Where(extraWhere, args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := query.
		Order(order).
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&rows).Error
	return rows, total, err
}

func (r *Repository) ListTrending(ctx context.Context, page pagination.Params) ([]models.Product, int64, error) {
	return r.listOrdered(ctx, "total_sold DESC, created_at DESC", page, "available = ?", true)
}

func (r *Repository) ListRecent(ctx context.Context, page pagination.Params) ([]models.Product, int64, error) {
	return r.listOrdered(ctx, "created_at DESC", page, "available = ?", true)
}

func (r *Repository) ListPopular(ctx context.Context, page pagination.Params) ([]models.Product, int64, error) {
	return r.listOrdered(ctx, "view_count DESC, created_at DESC", page, "available = ?", true)
}

func (r *Repository) ListTopRated(ctx context.Context, page pagination.Params) ([]models.Product, int64, error) {
	return r.listOrdered(ctx, "average_rating DESC, review_count DESC", page, "available = ?", true)
}

func (r *Repository) ListOutOfStock(ctx context.Context, page pagination.Params) ([]models.Product, int64, error) {
	return r.listOrdered(ctx, "updated_at DESC", page, "in_stock <= 0")
}

// IncrementViewCount bumps view_count without read-modify-write.
func (r *Repository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// Restock atomically increments in_stock by the given quantity.
func (r *Repository) Restock(ctx context.Context, id uuid.UUID, quantity int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("in_stock", gorm.Expr("in_stock + ?", quantity))
	return result.RowsAffected, result.Error
}

// DecrementStockGuarded applies the conditional stock decrement. It only
// succeeds when in_stock still covers the quantity at write time; the caller
// must treat zero rows affected as a concurrent-checkout conflict.
func (r *Repository) DecrementStockGuarded(ctx context.Context, id uuid.UUID, quantity int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND in_stock >= ?", id, quantity).
		UpdateColumn("in_stock", gorm.Expr("in_stock - ?", quantity))
	return result.RowsAffected, result.Error
}

// RestoreStock adds quantity back after a cancellation.
func (r *Repository) RestoreStock(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("in_stock", gorm.Expr("in_stock + ?", quantity)).Error
}

// CreditSale increments the sales counters for one delivered order line.
func (r *Repository) CreditSale(ctx context.Context, id uuid.UUID, quantity int, revenue decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_sold":    gorm.Expr("total_sold + ?", quantity),
			"total_revenue": gorm.Expr("total_revenue + ?", revenue),
		}).Error
}

// UpsertRating stores the user's score, overwriting any previous rating.
func (r *Repository) UpsertRating(ctx context.Context, productID, userID uuid.UUID, score int) error {
	var existing models.ProductRating
	err := r.db.WithContext(ctx).
		First(&existing, "product_id = ? AND user_id = ?", productID, userID).Error
	switch {
	case err == nil:
		existing.Score = score
		return r.db.WithContext(ctx).Save(&existing).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		rating := models.ProductRating{ProductID: productID, UserID: userID, Score: score}
		return r.db.WithContext(ctx).Create(&rating).Error
	default:
		return err
	}
}

// RecomputeRating refreshes average_rating and review_count from the ratings table.
func (r *Repository) RecomputeRating(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
UPDATE products SET
  average_rating = COALESCE((SELECT AVG(score) FROM product_ratings WHERE product_id = products.id), 0),
  review_count = (SELECT COUNT(*) FROM product_ratings WHERE product_id = products.id)
WHERE id = ?`, productID).Error
}

// AddFavorite inserts the favorite, ignoring duplicates.
func (r *Repository) AddFavorite(ctx context.Context, productID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Exec(`INSERT INTO product_favorites (id, product_id, user_id, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP) ON CONFLICT (product_id, user_id) DO NOTHING`,
			uuid.New(), productID, userID).Error
}

// RemoveFavorite drops the favorite if it exists.
func (r *Repository) RemoveFavorite(ctx context.Context, productID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("product_id = ? AND user_id = ?", productID, userID).
		Delete(&models.ProductFavorite{}).Error
}

// ListFavorites returns the products a user has favorited, newest first.
func (r *Repository) ListFavorites(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Joins("JOIN product_favorites f ON f.product_id = products.id").
		Where("f.user_id = ?", userID).
		Order("f.created_at DESC").
		Find(&rows).Error
	return rows, err
}

// AddComment appends a timestamped comment.
func (r *Repository) AddComment(ctx context.Context, comment *models.ProductComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListComments returns comments for a product, newest first.
func (r *Repository) ListComments(ctx context.Context, productID uuid.UUID) ([]models.ProductComment, error) {
	var rows []models.ProductComment
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
