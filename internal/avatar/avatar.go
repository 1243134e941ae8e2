// Package avatar normalizes profile images: uploads are validated, hard
// resized to a fixed square and stored png-encoded on the user record.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"

	"task-manager/internal/apperr"
	"task-manager/internal/repository"
)

const (
	// MaxBytes is the upload size ceiling, matching the store's ceiling for
	// the avatar field.
	MaxBytes = 1000000
	// Side is the edge length of the stored image. Aspect ratio is not
	// preserved.
	Side = 250
)

var allowedExtensions = []string{".jpg", ".jpeg", ".png"}

// Service validates, normalizes and serves user avatars.
type Service struct {
	users repository.UserRepository
}

func NewService(users repository.UserRepository) *Service {
	return &Service{users: users}
}

// Upload replaces the user's avatar with a 250x250 png rendition of data.
// The filename check is a literal suffix match; content is only inspected at
// decode time.
func (s *Service) Upload(ctx context.Context, userID string, data []byte, filename string) error {
	if len(data) > MaxBytes {
		return apperr.Validation("file too large")
	}
	if !hasAllowedExtension(filename) {
		return apperr.Validation("file must be jpg or jpeg or png")
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: decode image: %v", apperr.ErrProcessing, err)
	}
	resized := imaging.Resize(img, Side, Side, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return fmt.Errorf("%w: encode png: %v", apperr.ErrProcessing, err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrNotFound
		}
		return err
	}

	user.Avatar = buf.Bytes()
	return s.users.Update(ctx, user)
}

// Remove clears the avatar. The second return value reports whether there
// was anything to remove; an absent avatar is a no-op, not an error.
func (s *Service) Remove(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, apperr.ErrNotFound
		}
		return false, err
	}

	if user.Avatar == nil {
		return false, nil
	}

	user.Avatar = nil
	if err := s.users.Update(ctx, user); err != nil {
		return false, err
	}
	return true, nil
}

// Fetch returns the stored png bytes for any user, no authentication needed.
func (s *Service) Fetch(ctx context.Context, userID string) ([]byte, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if user.Avatar == nil {
		return nil, apperr.ErrNotFound
	}
	return user.Avatar, nil
}

func hasAllowedExtension(filename string) bool {
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}
