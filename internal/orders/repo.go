package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

// Repository encapsulates order persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an order repository bound to the provided gorm DB.
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

func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID loads the order with its snapshot items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// ListByUser returns the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Order, int64, error) {
	page = pagination.Normalize(page)
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&rows).Error
	return rows, total, err
}

// ListByDriver returns orders assigned to the driver, newest first.
func (r *Repository) ListByDriver(ctx context.Context, driverID uuid.UUID, page pagination.Params) ([]models.Order, int64, error) {
	page = pagination.Normalize(page)
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("driver_id = ?", driverID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&rows).Error
	return rows, total, err
}

// ListAdmin returns the filtered admin listing, newest first.
func (r *Repository) ListAdmin(ctx context.Context, filter AdminListFilter) ([]models.Order, int64, error) {
	page := pagination.Normalize(filter.Page)
	query := r.db.WithContext(ctx).Model(&models.Order{})

	switch filter.Tab {
	case AdminTabPending:
		query = query.Where("status = ?", enums.OrderStatusPending)
	case AdminTabUnpaid:
		query = query.Where("payment_status = ?", enums.PaymentStatusUnpaid)
	case AdminTabOpen:
		query = query.Where("status NOT IN ?", []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled})
	case AdminTabClosed:
		query = query.Where("status IN ?", []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled})
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"id IN (SELECT order_id FROM order_items WHERE LOWER(name) LIKE ?)",
			pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&rows).Error
	return rows, total, err
}

// CountByDriverAndStatus counts the driver's orders in the given status.
func (r *Repository) CountByDriverAndStatus(ctx context.Context, driverID uuid.UUID, status enums.OrderStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("driver_id = ? AND status = ?", driverID, status).
		Count(&count).Error
	return count, err
}

// CountByDriver counts every order ever assigned to the driver.
func (r *Repository) CountByDriver(ctx context.Context, driverID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("driver_id = ?", driverID).
		Count(&count).Error
	return count, err
}
