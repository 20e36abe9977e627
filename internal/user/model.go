package user

import (
	"strings"
	"time"

	"chefshare/internal/recipe"
)

// User is a registered account.
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Bio          string    `json:"bio,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	SavedRecipes []string  `json:"savedRecipes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile returns the subset embedded in recipe responses.
func (u *User) Profile() recipe.Profile {
	return recipe.Profile{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

// Public hides the email address.
func (u *User) Public() *User {
	p := *u
	p.Email = ""
	p.PasswordHash = ""
	if p.SavedRecipes == nil {
		p.SavedRecipes = []string{}
	}
	return &p
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterInput is the registration body.
type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginInput is the login body.
type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ProfileInput is a profile edit. Empty fields keep their current value.
type ProfileInput struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl" binding:"omitempty,url|startswith=/"`
	Password  string `json:"password"`
}

// Session is returned by register, login and profile edits.
type Session struct {
	ID        string `json:"_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Token     string `json:"token"`
}

// Account is the authenticated user's own view with saved recipes expanded.
type Account struct {
	ID           string           `json:"_id"`
	Username     string           `json:"username"`
	Email        string           `json:"email"`
	Bio          string           `json:"bio,omitempty"`
	AvatarURL    string           `json:"avatarUrl,omitempty"`
	SavedRecipes []*recipe.Recipe `json:"savedRecipes"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// Saved is the result of toggling a saved recipe.
type Saved struct {
	Message      string   `json:"message"`
	SavedRecipes []string `json:"savedRecipes"`
}
