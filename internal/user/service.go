package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"chefshare/internal/apperror"
	"chefshare/internal/recipe"
)

const bcryptCost = 10

// TokenIssuer signs session tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// RecipeLookup resolves saved recipe ids.
type RecipeLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]*recipe.Recipe, error)
}

// Service implements registration, login and profile operations.
type Service struct {
	store   Store
	recipes RecipeLookup
	tokens  TokenIssuer
}

var _ recipe.Directory = (*Service)(nil)

// NewService creates a new Service.
func NewService(store Store, recipes RecipeLookup, tokens TokenIssuer) *Service {
	return &Service{store: store, recipes: recipes, tokens: tokens}
}

// Register creates an account and returns a signed-in session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = NormalizeEmail(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, apperror.Validation("Please add all fields")
	}

	// The store's unique index still guards against a concurrent registration.
	_, err := s.store.FindByEmail(ctx, in.Email)
	if err == nil {
		return nil, apperror.Validation("User already exists")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{Username: in.Username, Email: in.Email, PasswordHash: string(hash)}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

// Login checks the credentials. Unknown emails and wrong passwords are
// reported the same way.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	u, err := s.store.FindByEmail(ctx, NormalizeEmail(in.Email))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Validation("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, apperror.Validation("Invalid credentials")
	}
	return s.session(u)
}

func (s *Service) session(u *User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
		Token:     token,
	}, nil
}

// Me returns the caller's account with saved recipes expanded. Saved ids
// whose recipe was deleted are dropped.
func (s *Service) Me(ctx context.Context, id string) (*Account, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	saved, err := s.recipes.FindByIDs(ctx, u.SavedRecipes)
	if err != nil {
		return nil, err
	}
	return &Account{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Bio:          u.Bio,
		AvatarURL:    u.AvatarURL,
		SavedRecipes: saved,
		CreatedAt:    u.CreatedAt,
	}, nil
}

// PublicProfile returns a user without email or password.
func (s *Service) PublicProfile(ctx context.Context, id string) (*User, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

// UpdateProfile applies the non-empty fields of in and returns a fresh session.
func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*Session, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(in.Username); v != "" {
		u.Username = v
	}
	if v := strings.TrimSpace(in.Bio); v != "" {
		u.Bio = v
	}
	if v := strings.TrimSpace(in.AvatarURL); v != "" {
		u.AvatarURL = v
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

// ToggleSaved adds or removes a recipe from the caller's saved list. Only
// existing recipes can be added; a stale id can always be removed.
func (s *Service) ToggleSaved(ctx context.Context, id, recipeID string) (*Saved, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !contains(u.SavedRecipes, recipeID) {
		found, err := s.recipes.FindByIDs(ctx, []string{recipeID})
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, apperror.NotFound("Recipe not found")
		}
	}

	saved, added, err := s.store.ToggleSaved(ctx, id, recipeID)
	if err != nil {
		return nil, err
	}
	msg := "Recipe removed from saved list"
	if added {
		msg = "Recipe saved"
	}
	return &Saved{Message: msg, SavedRecipes: saved}, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Profiles resolves user ids to public profiles for recipe responses.
func (s *Service) Profiles(ctx context.Context, ids []string) (map[string]recipe.Profile, error) {
	out := make(map[string]recipe.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Profile()
	}
	return out, nil
}
