package repository

import (
	"context"

	"task-manager/internal/domain"
)

// TaskRepository exposes persistence operations for Task records. Ownership
// queries go by the owner field; there is no join at the store level.
type TaskRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, task *domain.Task) error
	Get(ctx context.Context, id string) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string, completed *bool) ([]domain.Task, error)
	DeleteByOwner(ctx context.Context, ownerID string) error
}
