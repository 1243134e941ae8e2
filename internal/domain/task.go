package domain

import "time"

// Task is a to-do item owned by a user. Ownership is a plain reference to
// User.ID; there is no foreign key at the store level, the account service
// cascades deletes explicitly.
type Task struct {
	ID          string
	OwnerID     string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
