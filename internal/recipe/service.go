package recipe

import (
	"context"
	"strings"
	"time"

	"chefshare/internal/apperror"
)

// Service implements the recipe operations on top of a Store.
type Service struct {
	store Store
	users Directory
}

// NewService creates a new Service.
func NewService(store Store, users Directory) *Service {
	return &Service{store: store, users: users}
}

// List returns the recipes matching f with authors populated. The rating
// threshold is applied after the store query and keeps the store order.
func (s *Service) List(ctx context.Context, f Filter) ([]*Recipe, error) {
	recipes, err := s.store.Find(ctx, f.Normalize())
	if err != nil {
		return nil, err
	}
	if f.MinRating != nil {
		recipes = FilterByMinRating(recipes, *f.MinRating)
	}
	if err := s.populate(ctx, recipes...); err != nil {
		return nil, err
	}
	return recipes, nil
}

// Get returns one recipe with its author and comment users populated.
func (s *Service) Get(ctx context.Context, id string) (*Recipe, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// FindByIDs returns the existing recipes among ids, authors populated.
func (s *Service) FindByIDs(ctx context.Context, ids []string) ([]*Recipe, error) {
	recipes, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, recipes...); err != nil {
		return nil, err
	}
	return recipes, nil
}

// Create saves a new recipe owned by actor.
func (s *Service) Create(ctx context.Context, actor string, in Input) (*Recipe, error) {
	if actor == "" {
		return nil, apperror.Unauthenticated("Not authorized, no token")
	}
	r := in.recipe(actor)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, r); err != nil {
		return nil, err
	}
	if err := s.populate(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Update applies p to a recipe owned by actor. The author never changes.
func (s *Service) Update(ctx context.Context, actor, id string, p Patch) (*Recipe, error) {
	r, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	p.apply(r)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, r); err != nil {
		return nil, err
	}
	if err := s.populate(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes a recipe owned by actor and returns its id.
func (s *Service) Delete(ctx context.Context, actor, id string) (string, error) {
	r, err := s.owned(ctx, actor, id)
	if err != nil {
		return "", err
	}
	if err := s.store.Delete(ctx, r.ID); err != nil {
		return "", err
	}
	return r.ID, nil
}

// owned loads the recipe and checks that actor is its author.
func (s *Service) owned(ctx context.Context, actor, id string) (*Recipe, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == "" || r.Author.ID != actor {
		return nil, apperror.Forbidden("User not authorized")
	}
	return r, nil
}

// Rate sets actor's rating on a recipe and returns all of its ratings.
func (s *Service) Rate(ctx context.Context, actor, id string, value int) ([]Rating, error) {
	if actor == "" {
		return nil, apperror.Unauthenticated("Not authorized, no token")
	}
	if value < 1 || value > 5 {
		return nil, apperror.Validation("Rating must be between 1 and 5")
	}
	return s.store.UpsertRating(ctx, id, Rating{User: actor, Rating: value})
}

// Comment appends actor's comment and returns all comments with users populated.
func (s *Service) Comment(ctx context.Context, actor, id, text string) ([]Comment, error) {
	if actor == "" {
		return nil, apperror.Unauthenticated("Not authorized, no token")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.Validation("Comment text is required")
	}

	comments, err := s.store.AddComment(ctx, id, Comment{
		User:      Profile{ID: actor},
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.populateComments(ctx, comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// TopContributors ranks authors by recipe count. Authors whose user record is
// gone are skipped after the limit has been applied.
func (s *Service) TopContributors(ctx context.Context, limit int) ([]Contributor, error) {
	counts, err := s.store.CountByAuthor(ctx)
	if err != nil {
		return nil, err
	}
	ranked := RankContributors(counts, limit)

	ids := make([]string, 0, len(ranked))
	for _, a := range ranked {
		ids = append(ids, a.AuthorID)
	}
	profiles, err := s.users.Profiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Contributor, 0, len(ranked))
	for _, a := range ranked {
		p, ok := profiles[a.AuthorID]
		if !ok {
			continue
		}
		out = append(out, Contributor{
			ID:          a.AuthorID,
			Username:    p.Username,
			AvatarURL:   p.AvatarURL,
			RecipeCount: a.Count,
		})
	}
	return out, nil
}

// Trending returns recipes ordered by average rating with unrated ones last.
func (s *Service) Trending(ctx context.Context, limit int) ([]*Recipe, error) {
	recipes, err := s.store.Find(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	SortTrending(recipes)
	if limit != NoLimit && len(recipes) > limit {
		recipes = recipes[:limit]
	}
	if err := s.populate(ctx, recipes...); err != nil {
		return nil, err
	}
	return recipes, nil
}

// populate replaces author and comment user references with public profiles.
// References to missing users keep only their id.
func (s *Service) populate(ctx context.Context, recipes ...*Recipe) error {
	ids := make([]string, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.Author.ID)
		for _, c := range r.Comments {
			ids = append(ids, c.User.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	profiles, err := s.users.Profiles(ctx, unique(ids))
	if err != nil {
		return err
	}
	for _, r := range recipes {
		if p, ok := profiles[r.Author.ID]; ok {
			r.Author = p
		}
		for i := range r.Comments {
			if p, ok := profiles[r.Comments[i].User.ID]; ok {
				r.Comments[i].User = p
			}
		}
	}
	return nil
}

func (s *Service) populateComments(ctx context.Context, comments []Comment) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.User.ID)
	}
	profiles, err := s.users.Profiles(ctx, unique(ids))
	if err != nil {
		return err
	}
	for i := range comments {
		if p, ok := profiles[comments[i].User.ID]; ok {
			comments[i].User = p
		}
	}
	return nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
