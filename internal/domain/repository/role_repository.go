package repository

import (
	"context"

	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
)

type RoleRepository interface {
	// FindByName returns nil, nil for an unknown role.
	FindByName(ctx context.Context, name string) (*entity.Role, error)
}
