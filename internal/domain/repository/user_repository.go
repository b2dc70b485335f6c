package repository

import (
	"context"
	"time"

	"github.com/minervamed/clinic-scheduler/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *entity.User) error
	// FindByEmail and FindByID preload the doctor profile and return nil, nil
	// when the user does not exist.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

// TokenRepository tracks issued JWT ids so that logout can revoke them.
type TokenRepository interface {
	Store(ctx context.Context, userID uuid.UUID, tokenID string, refresh bool, ttl time.Duration) error
	Exists(ctx context.Context, userID uuid.UUID, tokenID string, refresh bool) (bool, error)
	Revoke(ctx context.Context, tokenID string, refresh bool) error
}

// TxManager runs fn inside one database transaction. fn's error rolls it back.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
