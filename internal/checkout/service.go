package checkout

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/internal/cart"
	"github.com/freshlane/freshlane-backend/internal/orders"
	"github.com/freshlane/freshlane-backend/internal/products"
	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/metrics"
	"github.com/freshlane/freshlane-backend/pkg/types"
)

// Input captures the checkout request fields.
type Input struct {
	ShippingFee     decimal.Decimal
	ShippingAddress *types.Address
	Notes           *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	DB          txRunner
	CartRepo    *cart.Repository
	OrderRepo   *orders.Repository
	ProductRepo *products.Repository
	Metrics     *metrics.CheckoutMetrics
	Logger      *logger.Logger
}

// Service converts a cart into an order atomically.
type Service interface {
	CreateFromCart(ctx context.Context, userID uuid.UUID, input Input) (orders.OrderDTO, error)
}

type service struct {
	db          txRunner
	cartRepo    *cart.Repository
	orderRepo   *orders.Repository
	productRepo *products.Repository
	metrics     *metrics.CheckoutMetrics
	logg        *logger.Logger
}

// NewService builds a checkout service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repo is required")
	}
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order repo is required")
	}
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		db:          params.DB,
		cartRepo:    params.CartRepo,
		orderRepo:   params.OrderRepo,
		productRepo: params.ProductRepo,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// CreateFromCart runs the checkout workflow in a single transaction: the cart
// lines are snapshotted, each product's stock is decremented under a guard
// that re-checks sufficiency at write time, the order is persisted pending and
// unpaid, and the cart is emptied. Any failure rolls the whole thing back so
// a partial stock decrement is never observable.
func (s *service) CreateFromCart(ctx context.Context, userID uuid.UUID, input Input) (orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return orders.OrderDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.ShippingFee.IsNegative() {
		return orders.OrderDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping fee must not be negative")
	}

	var result orders.OrderDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		userCart, err := cartRepo.GetOrCreate(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(userCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		subtotal := decimal.Zero
		items := make([]models.OrderItem, 0, len(userCart.Items))
		for _, line := range userCart.Items {
			product := line.Product
			if product == nil {
				loaded, err := productRepo.FindByID(ctx, line.ProductID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
				}
				product = loaded
			}

			if product.InStock < line.Quantity {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for "+product.Name)
			}

			affected, err := productRepo.DecrementStockGuarded(ctx, product.ID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeStockConflict, "stock changed during checkout for "+product.Name)
			}

			lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			subtotal = subtotal.Add(lineTotal)
			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				Image:     product.ImageURL,
				Quantity:  line.Quantity,
				LineTotal: lineTotal,
			})
		}

		order := &models.Order{
			UserID:          userID,
			Items:           items,
			Subtotal:        subtotal,
			ShippingFee:     input.ShippingFee,
			Total:           subtotal.Add(input.ShippingFee),
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.PaymentStatusUnpaid,
			ShippingAddress: input.ShippingAddress,
			Notes:           input.Notes,
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if err := cartRepo.Clear(ctx, userCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		result = orders.ToOrderDTO(order)
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			s.metrics.IncFailure(string(typed.Code()))
		} else {
			s.metrics.IncFailure(string(pkgerrors.CodeInternal))
		}
		return orders.OrderDTO{}, err
	}

	logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, userID.String()), result.ID.String())
	s.logg.Info(logCtx, "order created from cart")
	s.metrics.IncOrder(string(result.PaymentStatus))
	return result, nil
}
