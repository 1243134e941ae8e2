package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/domain"
	"task-manager/internal/repository"
	"task-manager/internal/repository/sqlite"
)

func newTestDB(t *testing.T) (repository.UserRepository, repository.TaskRepository) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	tasks := sqlite.NewTaskRepository(db)
	require.NoError(t, users.Init(context.Background()))
	require.NoError(t, tasks.Init(context.Background()))
	return users, tasks
}

func newUser(id, email string) *domain.User {
	return &domain.User{
		ID:           id,
		Name:         "Test User",
		Email:        email,
		Age:          30,
		PasswordHash: "$2a$10$fakefakefakefakefakefake",
		Tokens:       []string{"tok-1", "tok-2"},
	}
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	users, _ := newTestDB(t)
	ctx := context.Background()

	user := newUser("u1", "u1@example.com")
	require.NoError(t, users.Create(ctx, user))
	assert.False(t, user.CreatedAt.IsZero())

	got, err := users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", got.Email)
	assert.Equal(t, []string{"tok-1", "tok-2"}, got.Tokens)
	assert.Nil(t, got.Avatar)

	got, err = users.GetByEmail(ctx, "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = users.GetByID(ctx, "ghost")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	users, _ := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, newUser("u1", "same@example.com")))
	err := users.Create(ctx, newUser("u2", "same@example.com"))
	require.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestUserRepository_Update(t *testing.T) {
	users, _ := newTestDB(t)
	ctx := context.Background()

	user := newUser("u1", "u1@example.com")
	require.NoError(t, users.Create(ctx, user))

	user.Name = "Renamed"
	user.Tokens = nil
	user.Avatar = []byte{0x89, 0x50, 0x4e, 0x47}
	require.NoError(t, users.Update(ctx, user))

	got, err := users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Empty(t, got.Tokens)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, got.Avatar)

	require.ErrorIs(t, users.Update(ctx, newUser("ghost", "g@example.com")), repository.ErrNotFound)
}

func TestUserRepository_UpdateDuplicateEmail(t *testing.T) {
	users, _ := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, newUser("u1", "u1@example.com")))
	other := newUser("u2", "u2@example.com")
	require.NoError(t, users.Create(ctx, other))

	other.Email = "u1@example.com"
	require.ErrorIs(t, users.Update(ctx, other), repository.ErrDuplicateEmail)
}

func TestUserRepository_Delete(t *testing.T) {
	users, _ := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, newUser("u1", "u1@example.com")))
	require.NoError(t, users.Delete(ctx, "u1"))

	_, err := users.GetByID(ctx, "u1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.ErrorIs(t, users.Delete(ctx, "u1"), repository.ErrNotFound)
}
