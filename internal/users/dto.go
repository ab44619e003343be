package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/cardhaus/cardhaus-backend/pkg/db/models"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID                     uuid.UUID            `json:"id"`
	Email                  string               `json:"email"`
	FirstName              string               `json:"first_name"`
	LastName               string               `json:"last_name"`
	Role                   enums.UserRole       `json:"role"`
	IsActive               bool                 `json:"is_active"`
	DefaultShippingAddress *types.Address       `json:"default_shipping_address,omitempty"`
	PreferredPaymentMethod *enums.PaymentMethod `json:"preferred_payment_method,omitempty"`
	LastLoginAt            *time.Time           `json:"last_login_at,omitempty"`
	CreatedAt              time.Time            `json:"created_at"`
	UpdatedAt              time.Time            `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         enums.UserRole
	IsActive     *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:                     u.ID,
		Email:                  u.Email,
		FirstName:              u.FirstName,
		LastName:               u.LastName,
		Role:                   u.Role,
		IsActive:               u.IsActive,
		DefaultShippingAddress: u.DefaultShippingAddress,
		PreferredPaymentMethod: u.PreferredPaymentMethod,
		LastLoginAt:            u.LastLoginAt,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}

	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Role:         role,
		IsActive:     isActive,
	}
}
