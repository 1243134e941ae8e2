package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"task-manager/internal/apperr"
	"task-manager/internal/auth"
	"task-manager/internal/repository/memory"
	"task-manager/internal/service"
)

type recordingNotifier struct {
	welcomes []string
	goodbyes []string
}

func (n *recordingNotifier) SendWelcome(email, name string) { n.welcomes = append(n.welcomes, email) }
func (n *recordingNotifier) SendGoodbye(email, name string) { n.goodbyes = append(n.goodbyes, email) }

func newTestAccounts(t *testing.T) (service.AccountService, *memory.UserRepository, *memory.TaskRepository, *recordingNotifier) {
	t.Helper()
	users := memory.NewUserRepository()
	tasks := memory.NewTaskRepository()
	notifier := &recordingNotifier{}
	signer := auth.NewTokenSigner([]byte("test-secret"), time.Hour)
	return service.NewAccountService(users, tasks, signer, notifier), users, tasks, notifier
}

func validInput() service.RegisterInput {
	return service.RegisterInput{
		Name:     "Amir",
		Email:    "amir@example.com",
		Age:      27,
		Password: "horse-staple",
	}
}

func TestRegister_HashesPassword(t *testing.T) {
	accounts, users, _, notifier := newTestAccounts(t)

	user, token, err := accounts.Register(context.Background(), validInput())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "horse-staple", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("horse-staple")))

	// The freshly issued token is already active.
	assert.True(t, stored.HasToken(token))
	assert.Equal(t, []string{"amir@example.com"}, notifier.welcomes)
}

func TestRegister_NormalizesFields(t *testing.T) {
	accounts, _, _, _ := newTestAccounts(t)

	in := validInput()
	in.Name = "  Amir "
	in.Email = "  AMIR@Example.COM "

	user, _, err := accounts.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Amir", user.Name)
	assert.Equal(t, "amir@example.com", user.Email)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*service.RegisterInput)
	}{
		{"empty name", func(in *service.RegisterInput) { in.Name = "  " }},
		{"invalid email", func(in *service.RegisterInput) { in.Email = "not-an-email" }},
		{"negative age", func(in *service.RegisterInput) { in.Age = -1 }},
		{"short password", func(in *service.RegisterInput) { in.Password = "abc" }},
		{"password contains password", func(in *service.RegisterInput) { in.Password = "MyPassWord1" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts, _, _, _ := newTestAccounts(t)
			in := validInput()
			tt.mutate(&in)

			_, _, err := accounts.Register(context.Background(), in)
			require.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	accounts, _, _, _ := newTestAccounts(t)

	_, _, err := accounts.Register(context.Background(), validInput())
	require.NoError(t, err)

	in := validInput()
	in.Email = "  Amir@EXAMPLE.com "
	_, _, err = accounts.Register(context.Background(), in)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLogin(t *testing.T) {
	accounts, _, _, _ := newTestAccounts(t)
	_, _, err := accounts.Register(context.Background(), validInput())
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := accounts.Login(context.Background(), "nobody@example.com", "horse-staple")
		require.ErrorIs(t, err, apperr.ErrAuthentication)
		assert.Equal(t, "Unable to Login", apperr.Message(err))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := accounts.Login(context.Background(), "amir@example.com", "wrong")
		require.ErrorIs(t, err, apperr.ErrAuthentication)
		assert.Equal(t, "Invalid Password", apperr.Message(err))
	})

	t.Run("tokens accumulate", func(t *testing.T) {
		user, first, err := accounts.Login(context.Background(), "amir@example.com", "horse-staple")
		require.NoError(t, err)
		_, second, err := accounts.Login(context.Background(), "amir@example.com", "horse-staple")
		require.NoError(t, err)
		require.NotEqual(t, first, second)

		fresh, err := accounts.Get(context.Background(), user.ID)
		require.NoError(t, err)
		assert.True(t, fresh.HasToken(first))
		assert.True(t, fresh.HasToken(second))
	})
}

func TestLogout_RevokesExactlyOneToken(t *testing.T) {
	accounts, _, _, _ := newTestAccounts(t)
	user, first, err := accounts.Register(context.Background(), validInput())
	require.NoError(t, err)
	_, second, err := accounts.Login(context.Background(), "amir@example.com", "horse-staple")
	require.NoError(t, err)

	require.NoError(t, accounts.Logout(context.Background(), user.ID, first))

	_, err = accounts.Authenticate(context.Background(), first)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	authed, err := accounts.Authenticate(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
}

func TestLogoutAll_RevokesEverything(t *testing.T) {
	accounts, _, _, _ := newTestAccounts(t)
	user, first, err := accounts.Register(context.Background(), validInput())
	require.NoError(t, err)
	_, second, err := accounts.Login(context.Background(), "amir@example.com", "horse-staple")
	require.NoError(t, err)

	require.NoError(t, accounts.LogoutAll(context.Background(), user.ID))

	for _, token := range []string{first, second} {
		_, err := accounts.Authenticate(context.Background(), token)
		require.ErrorIs(t, err, apperr.ErrUnauthorized)
	}
}

func TestAuthenticate_RejectsForgedToken(t *testing.T) {
	accounts, _, _, _ := newTestAccounts(t)
	user, _, err := accounts.Register(context.Background(), validInput())
	require.NoError(t, err)

	// Valid signature but never issued through login: not in the active set.
	foreign := auth.NewTokenSigner([]byte("test-secret"), time.Hour)
	forged, err := foreign.Sign(user.ID)
	require.NoError(t, err)

	_, err = accounts.Authenticate(context.Background(), forged)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func patch(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	return m
}

func TestUpdateProfile(t *testing.T) {
	accounts, users, _, _ := newTestAccounts(t)
	user, _, err := accounts.Register(context.Background(), validInput())
	require.NoError(t, err)

	t.Run("unknown key mutates nothing", func(t *testing.T) {
		_, err := accounts.UpdateProfile(context.Background(), user.ID, patch(t, `{"role":"admin","name":"x"}`))
		require.ErrorIs(t, err, apperr.ErrValidation)

		fresh, err := users.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Amir", fresh.Name)
	})

	t.Run("invalid resulting record rejected", func(t *testing.T) {
		_, err := accounts.UpdateProfile(context.Background(), user.ID, patch(t, `{"age":-3}`))
		require.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("allowed fields applied", func(t *testing.T) {
		updated, err := accounts.UpdateProfile(context.Background(), user.ID, patch(t, `{"name":"Amira","age":28,"email":"Amira@Example.com"}`))
		require.NoError(t, err)
		assert.Equal(t, "Amira", updated.Name)
		assert.Equal(t, 28, updated.Age)
		assert.Equal(t, "amira@example.com", updated.Email)
	})

	t.Run("password is re-hashed", func(t *testing.T) {
		before, err := users.GetByID(context.Background(), user.ID)
		require.NoError(t, err)

		_, err = accounts.UpdateProfile(context.Background(), user.ID, patch(t, `{"password":"new-secret"}`))
		require.NoError(t, err)

		after, err := users.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.NotEqual(t, before.PasswordHash, after.PasswordHash)
		assert.NotEqual(t, "new-secret", after.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(after.PasswordHash), []byte("new-secret")))
	})

	t.Run("weak replacement password rejected", func(t *testing.T) {
		_, err := accounts.UpdateProfile(context.Background(), user.ID, patch(t, `{"password":"password1"}`))
		require.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestDelete_CascadesTasks(t *testing.T) {
	accounts, users, taskRepo, notifier := newTestAccounts(t)
	taskService := service.NewTaskService(taskRepo)

	user, _, err := accounts.Register(context.Background(), validInput())
	require.NoError(t, err)
	_, err = taskService.CreateTask(context.Background(), user.ID, "walk the dog")
	require.NoError(t, err)
	_, err = taskService.CreateTask(context.Background(), user.ID, "water plants")
	require.NoError(t, err)

	deleted, err := accounts.Delete(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, deleted.ID)
	assert.Equal(t, []string{"amir@example.com"}, notifier.goodbyes)

	remaining, err := taskRepo.ListByOwner(context.Background(), user.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = users.GetByID(context.Background(), user.ID)
	require.Error(t, err)
}

func TestDelete_AbortsWhenCascadeFails(t *testing.T) {
	accounts, users, taskRepo, notifier := newTestAccounts(t)

	user, _, err := accounts.Register(context.Background(), validInput())
	require.NoError(t, err)

	taskRepo.FailDeleteByOwner = assert.AnError
	_, err = accounts.Delete(context.Background(), user.ID)
	require.Error(t, err)

	// The user record must survive a failed cascade.
	_, err = users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, notifier.goodbyes)
}

func TestPublicUser_OmitsSecrets(t *testing.T) {
	accounts, users, _, _ := newTestAccounts(t)
	user, _, err := accounts.Register(context.Background(), validInput())
	require.NoError(t, err)

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	stored.Avatar = []byte{1, 2, 3}

	data, err := json.Marshal(stored.Public())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for key := range fields {
		assert.NotContains(t, []string{"PasswordHash", "Tokens", "Avatar"}, key)
	}
}
