package drivers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/internal/orders"
	"github.com/freshlane/freshlane-backend/internal/users"
	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
)

// StatsDTO summarizes a driver's delivery workload.
type StatsDTO struct {
	DriverID       uuid.UUID `json:"driverId"`
	TotalAssigned  int64     `json:"totalAssigned"`
	DeliveredCount int64     `json:"deliveredCount"`
	ActiveCount    int64     `json:"activeCount"`
}

// DetailDTO pairs the driver profile with their stats.
type DetailDTO struct {
	Driver users.UserDTO `json:"driver"`
	Stats  StatsDTO      `json:"stats"`
}

// ServiceParams groups dependencies for the driver stats service.
type ServiceParams struct {
	UserRepo  *users.Repository
	OrderRepo *orders.Repository
}

// Service exposes delivery statistics and driver listings.
type Service interface {
	GetStats(ctx context.Context, driverID uuid.UUID) (StatsDTO, error)
	GetDetail(ctx context.Context, driverID uuid.UUID) (DetailDTO, error)
	ListDrivers(ctx context.Context) ([]DetailDTO, error)
}

type service struct {
	userRepo  *users.Repository
	orderRepo *orders.Repository
}

// NewService builds a driver stats service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user repo is required")
	}
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order repo is required")
	}
	return &service{
		userRepo:  params.UserRepo,
		orderRepo: params.OrderRepo,
	}, nil
}

// GetStats returns delivery counters for one driver.
func (s *service) GetStats(ctx context.Context, driverID uuid.UUID) (StatsDTO, error) {
	if _, err := s.findDriver(ctx, driverID); err != nil {
		return StatsDTO{}, err
	}
	return s.buildStats(ctx, driverID)
}

// GetDetail returns the driver profile together with their stats.
func (s *service) GetDetail(ctx context.Context, driverID uuid.UUID) (DetailDTO, error) {
	driver, err := s.findDriver(ctx, driverID)
	if err != nil {
		return DetailDTO{}, err
	}
	stats, err := s.buildStats(ctx, driverID)
	if err != nil {
		return DetailDTO{}, err
	}
	return DetailDTO{Driver: driver, Stats: stats}, nil
}

// ListDrivers returns every driver with their stats, newest first.
func (s *service) ListDrivers(ctx context.Context) ([]DetailDTO, error) {
	rows, err := s.userRepo.ListByRole(ctx, enums.RoleDriver)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list drivers")
	}

	details := make([]DetailDTO, 0, len(rows))
	for i := range rows {
		stats, err := s.buildStats(ctx, rows[i].ID)
		if err != nil {
			return nil, err
		}
		details = append(details, DetailDTO{Driver: toDriverDTO(&rows[i]), Stats: stats})
	}
	return details, nil
}

func (s *service) buildStats(ctx context.Context, driverID uuid.UUID) (StatsDTO, error) {
	total, err := s.orderRepo.CountByDriver(ctx, driverID)
	if err != nil {
		return StatsDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count assigned orders")
	}
	delivered, err := s.orderRepo.CountByDriverAndStatus(ctx, driverID, enums.OrderStatusDelivered)
	if err != nil {
		return StatsDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count delivered orders")
	}
	active, err := s.orderRepo.CountByDriverAndStatus(ctx, driverID, enums.OrderStatusShipped)
	if err != nil {
		return StatsDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active orders")
	}
	return StatsDTO{
		DriverID:       driverID,
		TotalAssigned:  total,
		DeliveredCount: delivered,
		ActiveCount:    active,
	}, nil
}

func (s *service) findDriver(ctx context.Context, driverID uuid.UUID) (users.UserDTO, error) {
	if driverID == uuid.Nil {
		return users.UserDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "driver id is required")
	}
	user, err := s.userRepo.FindByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return users.UserDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		return users.UserDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
	}
	if user.Role != enums.RoleDriver {
		return users.UserDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
	}
	return toDriverDTO(user), nil
}

func toDriverDTO(user *models.User) users.UserDTO {
	return users.UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		Role:        user.Role,
		Image:       user.Image,
		PhoneNumber: user.PhoneNumber,
		Location:    user.Location,
		Gender:      user.Gender,
		DateOfBirth: user.DateOfBirth,
		CreatedAt:   user.CreatedAt,
	}
}
