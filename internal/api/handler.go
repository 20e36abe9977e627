package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"chefshare/internal/auth"
	"chefshare/internal/recipe"
	"chefshare/internal/suggest"
	"chefshare/internal/user"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultAITimeout = 90 * time.Second
)

// RecipeService defines the recipe operations used by the handlers.
type RecipeService interface {
	List(ctx context.Context, f recipe.Filter) ([]*recipe.Recipe, error)
	Get(ctx context.Context, id string) (*recipe.Recipe, error)
	Create(ctx context.Context, actor string, in recipe.Input) (*recipe.Recipe, error)
	Update(ctx context.Context, actor, id string, p recipe.Patch) (*recipe.Recipe, error)
	Delete(ctx context.Context, actor, id string) (string, error)
	Rate(ctx context.Context, actor, id string, value int) ([]recipe.Rating, error)
	Comment(ctx context.Context, actor, id, text string) ([]recipe.Comment, error)
	TopContributors(ctx context.Context, limit int) ([]recipe.Contributor, error)
	Trending(ctx context.Context, limit int) ([]*recipe.Recipe, error)
}

// UserService defines the account operations used by the handlers.
type UserService interface {
	Register(ctx context.Context, in user.RegisterInput) (*user.Session, error)
	Login(ctx context.Context, in user.LoginInput) (*user.Session, error)
	Me(ctx context.Context, id string) (*user.Account, error)
	PublicProfile(ctx context.Context, id string) (*user.User, error)
	UpdateProfile(ctx context.Context, id string, in user.ProfileInput) (*user.Session, error)
	ToggleSaved(ctx context.Context, id, recipeID string) (*user.Saved, error)
}

// Suggester generates a recipe suggestion from ingredients.
type Suggester interface {
	Suggest(ctx context.Context, req suggest.Request) (*suggest.Suggestion, error)
}

// ImageStore persists uploaded images and returns their public URL.
type ImageStore interface {
	Save(filename string, data []byte) (string, error)
}

// TokenRevoker invalidates a token on logout.
type TokenRevoker interface {
	Revoke(ctx context.Context, claims *auth.Claims) error
}

// Handler handles HTTP requests.
type Handler struct {
	Recipes   RecipeService
	Users     UserService
	Suggester Suggester
	Images    ImageStore
	Revoker   TokenRevoker

	// Timeout bounds store calls; AITimeout bounds a whole suggestion run.
	Timeout   time.Duration
	AITimeout time.Duration
}

// NewHandler creates a new Handler with the default timeouts.
func NewHandler(recipes RecipeService, users UserService, suggester Suggester, images ImageStore, revoker TokenRevoker) *Handler {
	return &Handler{
		Recipes:   recipes,
		Users:     users,
		Suggester: suggester,
		Images:    images,
		Revoker:   revoker,
		Timeout:   defaultTimeout,
		AITimeout: defaultAITimeout,
	}
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.Timeout)
}
