package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"task-manager/internal/apperr"
	"task-manager/internal/domain"
	"task-manager/internal/repository"
)

// TaskService coordinates task operations scoped to their owner. A task that
// exists but belongs to someone else is reported as not found, never as
// forbidden.
type TaskService interface {
	CreateTask(ctx context.Context, ownerID, description string) (*domain.Task, error)
	GetTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context, ownerID string, completed *bool) ([]domain.Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID string, patch map[string]json.RawMessage) (*domain.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) error
}

type taskService struct {
	tasks repository.TaskRepository
}

func NewTaskService(tasks repository.TaskRepository) TaskService {
	return &taskService{tasks: tasks}
}

func (s *taskService) CreateTask(ctx context.Context, ownerID, description string) (*domain.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperr.Validation("description is required")
	}

	task := &domain.Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Description: description,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) GetTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	return s.ownedTask(ctx, ownerID, taskID)
}

func (s *taskService) ListTasks(ctx context.Context, ownerID string, completed *bool) ([]domain.Task, error) {
	return s.tasks.ListByOwner(ctx, ownerID, completed)
}

var allowedTaskKeys = map[string]bool{
	"description": true,
	"completed":   true,
}

func (s *taskService) UpdateTask(ctx context.Context, ownerID, taskID string, patch map[string]json.RawMessage) (*domain.Task, error) {
	for key := range patch {
		if !allowedTaskKeys[key] {
			return nil, apperr.Validation("invalid updates")
		}
	}

	task, err := s.ownedTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	if raw, ok := patch["description"]; ok {
		var description string
		if err := json.Unmarshal(raw, &description); err != nil {
			return nil, apperr.Validation("description must be a string")
		}
		description = strings.TrimSpace(description)
		if description == "" {
			return nil, apperr.Validation("description is required")
		}
		task.Description = description
	}
	if raw, ok := patch["completed"]; ok {
		var completed bool
		if err := json.Unmarshal(raw, &completed); err != nil {
			return nil, apperr.Validation("completed must be a boolean")
		}
		task.Completed = completed
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	task, err := s.ownedTask(ctx, ownerID, taskID)
	if err != nil {
		return err
	}
	return s.tasks.Delete(ctx, task.ID)
}

func (s *taskService) ownedTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if task.OwnerID != ownerID {
		return nil, apperr.ErrNotFound
	}
	return task, nil
}
