package domain

import (
	"context"
	"time"
)

const (
	RoleAdmin    = "ADMIN"
	RoleDean     = "DEAN"
	RoleLecturer = "LECTURER"
	RoleStudent  = "STUDENT"

	StatusActive = "active"
	StatusLocked = "locked"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDean, RoleLecturer, RoleStudent:
		return true
	}
	return false
}

type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Age          int       `json:"age"`
	Avatar       string    `json:"avatar"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	PasswordHash string    `json:"-"`
	CreateDate   time.Time `json:"create_date"`
}

type CreateInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Age      int
	Avatar   string
	Role     string
}

// UpdateInput carries the self-service editable fields only; email, role and
// status are changed through their own operations.
type UpdateInput struct {
	Name   string
	Phone  string
	Age    int
	Avatar string
}

type Store interface {
	Create(ctx context.Context, in CreateInput, passwordHash string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Update(ctx context.Context, id string, in UpdateInput) (*Account, error)
	List(ctx context.Context, page, size int) ([]Account, int64, error)
	SetStatus(ctx context.Context, id, status string) error
	SetPasswordHash(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
}
