package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/internal/products"
	"github.com/freshlane/freshlane-backend/internal/users"
	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/outbox"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

// transitions is the order status state machine. Absent entries are illegal;
// delivered and cancelled are terminal.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped: {enums.OrderStatusDelivered},
}

func canTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the fulfillment service.
type ServiceParams struct {
	DB          txRunner
	OrderRepo   *Repository
	ProductRepo *products.Repository
	UserRepo    *users.Repository
	Outbox      *outbox.Service
	Logger      *logger.Logger
}

// Service exposes order retrieval and the status-transition workflow.
type Service interface {
	GetOrder(ctx context.Context, orderID, actorID uuid.UUID, actorRole enums.Role) (OrderDTO, error)
	ListMyOrders(ctx context.Context, userID uuid.UUID, page pagination.Params) (OrderPageDTO, error)
	ListDriverOrders(ctx context.Context, driverID uuid.UUID, page pagination.Params) (OrderPageDTO, error)
	ListAdmin(ctx context.Context, filter AdminListFilter) (OrderPageDTO, error)

	CancelMyOrder(ctx context.Context, orderID, userID uuid.UUID) (OrderDTO, error)
	AssignDriver(ctx context.Context, orderID, driverID, adminID uuid.UUID) (OrderDTO, error)
	DriverUpdateStatus(ctx context.Context, driverID, orderID uuid.UUID, newStatus enums.OrderStatus) (OrderDTO, error)
	AdminUpdateStatus(ctx context.Context, orderID, adminID uuid.UUID, input AdminStatusInput) (OrderDTO, error)
}

type service struct {
	db          txRunner
	orderRepo   *Repository
	productRepo *products.Repository
	userRepo    *users.Repository
	outbox      *outbox.Service
	logg        *logger.Logger
}

// NewService builds a fulfillment service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order repo is required")
	}
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user repo is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox service is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		db:          params.DB,
		orderRepo:   params.OrderRepo,
		productRepo: params.ProductRepo,
		userRepo:    params.UserRepo,
		outbox:      params.Outbox,
		logg:        params.Logger,
	}, nil
}

// GetOrder returns the order when the actor is the owner, an admin, or the
// assigned driver.
func (s *service) GetOrder(ctx context.Context, orderID, actorID uuid.UUID, actorRole enums.Role) (OrderDTO, error) {
	order, err := s.findOrder(ctx, s.orderRepo, orderID)
	if err != nil {
		return OrderDTO{}, err
	}

	switch {
	case order.UserID == actorID:
	case actorRole == enums.RoleAdmin:
	case actorRole == enums.RoleDriver && order.DriverID != nil && *order.DriverID == actorID:
	default:
		return OrderDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return ToOrderDTO(order), nil
}

// ListMyOrders returns the caller's orders.
func (s *service) ListMyOrders(ctx context.Context, userID uuid.UUID, page pagination.Params) (OrderPageDTO, error) {
	rows, total, err := s.orderRepo.ListByUser(ctx, userID, page)
	if err != nil {
		return OrderPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return OrderPageDTO{
		Items:      toOrderDTOs(rows),
		Pagination: pagination.NewMeta(pagination.Normalize(page), total),
	}, nil
}

// ListDriverOrders returns orders assigned to the driver.
func (s *service) ListDriverOrders(ctx context.Context, driverID uuid.UUID, page pagination.Params) (OrderPageDTO, error) {
	rows, total, err := s.orderRepo.ListByDriver(ctx, driverID, page)
	if err != nil {
		return OrderPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list driver orders")
	}
	return OrderPageDTO{
		Items:      toOrderDTOs(rows),
		Pagination: pagination.NewMeta(pagination.Normalize(page), total),
	}, nil
}

// ListAdmin returns the filtered admin order listing.
func (s *service) ListAdmin(ctx context.Context, filter AdminListFilter) (OrderPageDTO, error) {
	if filter.Tab == "" {
		filter.Tab = AdminTabAll
	}
	if !filter.Tab.IsValid() {
		return OrderPageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid tab filter")
	}
	rows, total, err := s.orderRepo.ListAdmin(ctx, filter)
	if err != nil {
		return OrderPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admin orders")
	}
	return OrderPageDTO{
		Items:      toOrderDTOs(rows),
		Pagination: pagination.NewMeta(pagination.Normalize(filter.Page), total),
	}, nil
}

// CancelMyOrder lets the owner cancel a pending order, restoring stock.
func (s *service) CancelMyOrder(ctx context.Context, orderID, userID uuid.UUID) (OrderDTO, error) {
	var result OrderDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := s.findOrder(ctx, orderRepo, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only pending orders can be cancelled")
		}

		actor := &outbox.ActorRef{UserID: userID, Role: string(enums.RoleUser)}
		if err := s.cancelLocked(ctx, tx, order, actor); err != nil {
			return err
		}
		result = ToOrderDTO(order)
		return nil
	})
	if err != nil {
		return OrderDTO{}, err
	}
	return result, nil
}

// AssignDriver sets the driver on a non-terminal order and forces it shipped.
func (s *service) AssignDriver(ctx context.Context, orderID, driverID, adminID uuid.UUID) (OrderDTO, error) {
	if driverID == uuid.Nil {
		return OrderDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "driver id is required")
	}

	driver, err := s.userRepo.FindByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		return OrderDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
	}
	if driver.Role != enums.RoleDriver {
		return OrderDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "target user is not a driver")
	}

	var result OrderDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := s.findOrder(ctx, orderRepo, orderID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is already closed")
		}

		now := time.Now()
		order.DriverID = &driverID
		order.AssignedAt = &now
		order.Status = enums.OrderStatusShipped

		if err := orderRepo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDriverAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.RoleAdmin)},
			Data: outbox.DriverAssignedData{
				OrderID:  order.ID,
				OwnerID:  order.UserID,
				DriverID: driverID,
			},
			OccurredAt: now,
			Version:    1,
		}); err != nil {
			return err
		}
		result = ToOrderDTO(order)
		return nil
	})
	if err != nil {
		return OrderDTO{}, err
	}
	return result, nil
}

// DriverUpdateStatus lets the assigned driver move an order to shipped or
// delivered. Delivery marks the order paid and credits product sales counters
// in the same transaction.
func (s *service) DriverUpdateStatus(ctx context.Context, driverID, orderID uuid.UUID, newStatus enums.OrderStatus) (OrderDTO, error) {
	if newStatus != enums.OrderStatusShipped && newStatus != enums.OrderStatusDelivered {
		return OrderDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "drivers may only mark orders shipped or delivered")
	}

	var result OrderDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := s.findOrder(ctx, orderRepo, orderID)
		if err != nil {
			return err
		}
		if order.DriverID == nil || *order.DriverID != driverID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this driver")
		}
		if !canTransition(order.Status, newStatus) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition disallowed")
		}

		previous := order.Status
		order.Status = newStatus
		if newStatus == enums.OrderStatusDelivered {
			now := time.Now()
			order.DeliveredAt = &now
			order.PaymentStatus = enums.PaymentStatusPaid

			productRepo := s.productRepo.WithTx(tx)
			for _, item := range order.Items {
				if err := productRepo.CreditSale(ctx, item.ProductID, item.Quantity, item.LineTotal); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit product sale")
				}
			}
		}

		if err := orderRepo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}

		if err := s.emitStatusChanged(ctx, tx, order, previous, driverID, enums.RoleDriver); err != nil {
			return err
		}
		result = ToOrderDTO(order)
		return nil
	})
	if err != nil {
		return OrderDTO{}, err
	}
	return result, nil
}

// AdminUpdateStatus applies an administrative override under the same
// transition legality rules.
func (s *service) AdminUpdateStatus(ctx context.Context, orderID, adminID uuid.UUID, input AdminStatusInput) (OrderDTO, error) {
	if !input.Status.IsValid() {
		return OrderDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}

	var result OrderDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := s.findOrder(ctx, orderRepo, orderID)
		if err != nil {
			return err
		}
		if !canTransition(order.Status, input.Status) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition disallowed")
		}

		previous := order.Status

		switch input.Status {
		case enums.OrderStatusShipped:
			if input.DriverID != nil {
				driver, err := s.userRepo.FindByID(ctx, *input.DriverID)
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
					}
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
				}
				if driver.Role != enums.RoleDriver {
					return pkgerrors.New(pkgerrors.CodeValidation, "target user is not a driver")
				}
				now := time.Now()
				order.DriverID = input.DriverID
				order.AssignedAt = &now
			}
			if order.DriverID == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "shipping requires an assigned driver")
			}
			order.Status = enums.OrderStatusShipped

		case enums.OrderStatusCancelled:
			actor := &outbox.ActorRef{UserID: adminID, Role: string(enums.RoleAdmin)}
			if err := s.cancelLocked(ctx, tx, order, actor); err != nil {
				return err
			}
			result = ToOrderDTO(order)
			return nil

		case enums.OrderStatusDelivered:
			now := time.Now()
			order.Status = enums.OrderStatusDelivered
			order.DeliveredAt = &now
			order.PaymentStatus = enums.PaymentStatusPaid

			productRepo := s.productRepo.WithTx(tx)
			for _, item := range order.Items {
				if err := productRepo.CreditSale(ctx, item.ProductID, item.Quantity, item.LineTotal); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit product sale")
				}
			}

		default:
			order.Status = input.Status
		}

		if input.PaymentStatus != nil {
			if !input.PaymentStatus.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
			}
			order.PaymentStatus = *input.PaymentStatus
		}

		if err := orderRepo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}

		if err := s.emitStatusChanged(ctx, tx, order, previous, adminID, enums.RoleAdmin); err != nil {
			return err
		}
		result = ToOrderDTO(order)
		return nil
	})
	if err != nil {
		return OrderDTO{}, err
	}
	return result, nil
}

// cancelLocked applies the cancellation inside an open transaction: stock is
// restored per line, the driver is cleared, and a status event is emitted.
func (s *service) cancelLocked(ctx context.Context, tx *gorm.DB, order *models.Order, actor *outbox.ActorRef) error {
	productRepo := s.productRepo.WithTx(tx)
	for _, item := range order.Items {
		if err := productRepo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
		}
	}

	now := time.Now()
	previous := order.Status
	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now
	order.DriverID = nil

	if err := s.orderRepo.WithTx(tx).Save(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: outbox.StatusChangedData{
			OrderID: order.ID,
			OwnerID: order.UserID,
			From:    string(previous),
			To:      string(enums.OrderStatusCancelled),
		},
		OccurredAt: now,
		Version:    1,
	})
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order *models.Order, previous enums.OrderStatus, actorID uuid.UUID, actorRole enums.Role) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: string(actorRole)},
		Data: outbox.StatusChangedData{
			OrderID:  order.ID,
			OwnerID:  order.UserID,
			DriverID: order.DriverID,
			From:     string(previous),
			To:       string(order.Status),
		},
		Version: 1,
	})
}

func (s *service) findOrder(ctx context.Context, repo *Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
