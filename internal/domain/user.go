package domain

import "time"

// User represents a registered account. PasswordHash, Tokens and Avatar are
// internal state and must never leave the service unsanitized.
type User struct {
	ID           string
	Name         string
	Email        string
	Age          int
	PasswordHash string
	Tokens       []string
	Avatar       []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the sanitized view of a User that is safe to return to
// callers: no password hash, no session tokens, no avatar bytes.
type PublicUser struct {
	ID        string
	Name      string
	Email     string
	Age       int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Public strips credentials and session state from the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// HasToken reports whether token is in the user's active session set.
func (u *User) HasToken(token string) bool {
	for _, t := range u.Tokens {
		if t == token {
			return true
		}
	}
	return false
}
