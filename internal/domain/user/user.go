package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// User is an account holder
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CPF       string    `json:"cpf"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser normalizes the CPF to digits only
func NewUser(name, cpf, email string) *User {
	return &User{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		CPF:       digitsOnly(cpf),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: time.Now().UTC(),
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Repository defines user persistence operations
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	ExistsByCPF(ctx context.Context, cpf string) (bool, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrDuplicateCPF indicates a second registration for the same document
type ErrDuplicateCPF struct {
	CPF string
}

func (e ErrDuplicateCPF) Error() string {
	return "a user with this CPF already exists"
}

// ErrUserNotFound indicates missing user
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e ErrUserNotFound) Error() string {
	return "user not found: " + e.UserID.String()
}
