package recipe

import (
	"context"
)

// Store defines the interface for recipe data operations.
type Store interface {
	// Find returns recipes matching every predicate of f except MinRating, in
	// insertion order.
	Find(ctx context.Context, f Filter) ([]*Recipe, error)
	// FindByIDs returns the recipes that exist among ids, in insertion order.
	FindByIDs(ctx context.Context, ids []string) ([]*Recipe, error)
	// Get returns the recipe or an apperror.ErrNotFound error.
	Get(ctx context.Context, id string) (*Recipe, error)
	// Insert assigns the id and timestamps of r and saves it.
	Insert(ctx context.Context, r *Recipe) error
	// Update saves the editable fields of r. Author, ratings and comments are kept.
	Update(ctx context.Context, r *Recipe) error
	Delete(ctx context.Context, id string) error
	// UpsertRating atomically sets the rating of rt.User, adding it when absent,
	// and returns the resulting ratings collection.
	UpsertRating(ctx context.Context, recipeID string, rt Rating) ([]Rating, error)
	// AddComment atomically appends c and returns the resulting comments.
	AddComment(ctx context.Context, recipeID string, c Comment) ([]Comment, error)
	// CountByAuthor returns the number of recipes per author id.
	CountByAuthor(ctx context.Context) (map[string]int, error)
}

// Directory resolves user ids to their public profiles. Unknown ids are
// absent from the returned map.
type Directory interface {
	Profiles(ctx context.Context, ids []string) (map[string]Profile, error)
}
