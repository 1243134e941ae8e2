package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"task-manager/internal/apperr"
	"task-manager/internal/auth"
	"task-manager/internal/domain"
	"task-manager/internal/repository"
)

// Notifier delivers account lifecycle emails. Implementations must be
// best-effort and non-blocking: a failed delivery never fails the operation
// that triggered it.
type Notifier interface {
	SendWelcome(email, name string)
	SendGoodbye(email, name string)
}

// RegisterInput carries the registration fields as submitted.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Age      int    `json:"age"`
	Password string `json:"password"`
}

// AccountService orchestrates the account lifecycle: registration, login,
// session revocation, profile updates and cascading deletion.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	// Authenticate resolves a bearer token to its user. The token must carry
	// a valid signature and still be a member of the user's active set.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	Logout(ctx context.Context, userID, token string) error
	LogoutAll(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, patch map[string]json.RawMessage) (*domain.User, error)
	Delete(ctx context.Context, userID string) (*domain.User, error)
}

type accountService struct {
	users    repository.UserRepository
	tasks    repository.TaskRepository
	signer   *auth.TokenSigner
	notifier Notifier
}

func NewAccountService(users repository.UserRepository, tasks repository.TaskRepository, signer *auth.TokenSigner, notifier Notifier) AccountService {
	return &accountService{
		users:    users,
		tasks:    tasks,
		signer:   signer,
		notifier: notifier,
	}
}

func (s *accountService) Register(ctx context.Context, in RegisterInput) (*domain.User, string, error) {
	user := &domain.User{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(in.Name),
		Email: normalizeEmail(in.Email),
		Age:   in.Age,
	}

	if err := validateUser(user); err != nil {
		return nil, "", err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	token, err := s.signer.Sign(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	user.Tokens = []string{token}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", apperr.Validation("email already registered")
		}
		return nil, "", err
	}

	if s.notifier != nil {
		s.notifier.SendWelcome(user.Email, user.Name)
	}

	return user, token, nil
}

func (s *accountService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", apperr.Authentication("Unable to Login")
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperr.Authentication("Invalid Password")
	}

	token, err := s.signer.Sign(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}

	// Sessions accumulate; logging in on a second device does not revoke the
	// first.
	user.Tokens = append(user.Tokens, token)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *accountService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.signer.Parse(token)
	if err != nil {
		return nil, apperr.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}

	// Signature alone is not enough: a revoked token no longer appears in the
	// user's active set.
	if !user.HasToken(token) {
		return nil, apperr.ErrUnauthorized
	}

	return user, nil
}

func (s *accountService) Logout(ctx context.Context, userID, token string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	kept := user.Tokens[:0]
	removed := false
	for _, t := range user.Tokens {
		if !removed && t == token {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	user.Tokens = kept

	return s.users.Update(ctx, user)
}

func (s *accountService) LogoutAll(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	user.Tokens = nil
	return s.users.Update(ctx, user)
}

func (s *accountService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

var allowedProfileKeys = map[string]bool{
	"name":     true,
	"email":    true,
	"password": true,
	"age":      true,
}

func (s *accountService) UpdateProfile(ctx context.Context, userID string, patch map[string]json.RawMessage) (*domain.User, error) {
	for key := range patch {
		if !allowedProfileKeys[key] {
			return nil, apperr.Validation("invalid updates")
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	if raw, ok := patch["name"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return nil, apperr.Validation("name must be a string")
		}
		user.Name = strings.TrimSpace(name)
	}
	if raw, ok := patch["email"]; ok {
		var email string
		if err := json.Unmarshal(raw, &email); err != nil {
			return nil, apperr.Validation("email must be a string")
		}
		user.Email = normalizeEmail(email)
	}
	if raw, ok := patch["age"]; ok {
		var age int
		if err := json.Unmarshal(raw, &age); err != nil {
			return nil, apperr.Validation("age must be a number")
		}
		user.Age = age
	}

	if err := validateUser(user); err != nil {
		return nil, err
	}

	// A changed password goes through the full policy and is re-hashed;
	// plaintext never reaches the store.
	if raw, ok := patch["password"]; ok {
		var password string
		if err := json.Unmarshal(raw, &password); err != nil {
			return nil, apperr.Validation("password must be a string")
		}
		if err := validatePassword(password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperr.Validation("email already registered")
		}
		return nil, err
	}

	return user, nil
}

func (s *accountService) Delete(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	// Cascade first. If dependent tasks cannot be removed the user record
	// stays; a half-deleted account is worse than a failed request.
	if err := s.tasks.DeleteByOwner(ctx, userID); err != nil {
		return nil, fmt.Errorf("cascade delete tasks: %w", err)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.SendGoodbye(user.Email, user.Name)
	}

	return user, nil
}
