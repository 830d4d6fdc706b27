package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
)

// RegisterInput captures the fields accepted at account creation.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginInput captures credential fields for session issuance.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput carries optional profile fields; nil means unchanged.
type UpdateProfileInput struct {
	Username    *string
	Image       *string
	PhoneNumber *string
	Location    *string
	Gender      *string
	DateOfBirth *string
}

// UserDTO is the public projection of a user record.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Role        enums.Role `json:"role"`
	Image       *string    `json:"image,omitempty"`
	PhoneNumber *string    `json:"phoneNumber,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Gender      *string    `json:"gender,omitempty"`
	DateOfBirth *string    `json:"dateOfBirth,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// AuthResultDTO pairs the issued token with the authenticated profile.
type AuthResultDTO struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

func toUserDTO(user *models.User) UserDTO {
	return UserDTO{
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
