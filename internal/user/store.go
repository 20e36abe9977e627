package user

import (
	"context"
)

// Store defines the interface for user data operations.
type Store interface {
	// Create assigns the id and timestamps of u and saves it. A taken email is
	// reported as a validation error.
	Create(ctx context.Context, u *User) error
	// FindByEmail looks up a normalized email. Unknown emails are ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
	// FindByIDs returns the existing users among ids. Malformed ids are ignored.
	FindByIDs(ctx context.Context, ids []string) ([]*User, error)
	// Update saves the username, bio, avatar and password hash of u.
	Update(ctx context.Context, u *User) error
	// ToggleSaved removes recipeID from the saved list when present, otherwise
	// adds it, and returns the resulting list.
	ToggleSaved(ctx context.Context, userID, recipeID string) (saved []string, added bool, err error)
}
