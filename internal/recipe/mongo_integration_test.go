//go:build integration

package recipe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chefshare/internal/apperror"
	"chefshare/internal/testinfra"
)

func newMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	store, err := NewMongoStore(context.Background(), testinfra.NewMongo(t))
	require.NoError(t, err)
	return store
}

func insertRecipe(t *testing.T, s Store, author, title string, category Category, ingredients ...string) *Recipe {
	t.Helper()
	r := &Recipe{
		Title:       title,
		Author:      Profile{ID: author},
		ImageURL:    DefaultImageURL,
		Ingredients: ingredients,
		Steps:       []string{"cook"},
		Category:    category,
		Mood:        "Comfort",
	}
	require.NoError(t, s.Insert(context.Background(), r))
	return r
}

// matching applies Filter.Matches to recipes in order.
func matching(recipes []*Recipe, f Filter) []*Recipe {
	out := []*Recipe{}
	for _, r := range recipes {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func TestMongoStoreFind(t *testing.T) {
	s := newMongoStore(t)
	ctx := context.Background()
	alice := primitive.NewObjectID().Hex()
	bob := primitive.NewObjectID().Hex()

	all := []*Recipe{
		insertRecipe(t, s, alice, "Leek Soup", Lunch, "Leek", "Potato"),
		insertRecipe(t, s, alice, "Choc (Dark) Cake", Dessert, "Chocolate"),
		insertRecipe(t, s, bob, "Potato Salad", Lunch, "potato"),
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{Category: AllCategories}, []string{"Leek Soup", "Choc (Dark) Cake", "Potato Salad"}},
		{"category", Filter{Category: "Lunch"}, []string{"Leek Soup", "Potato Salad"}},
		{"ingredient any element", Filter{Ingredient: "POTATO"}, []string{"Leek Soup", "Potato Salad"}},
		{"search is literal", Filter{Search: "(dark)"}, []string{"Choc (Dark) Cake"}},
		{"author", Filter{Author: bob}, []string{"Potato Salad"}},
		{"malformed author", Filter{Author: "nope"}, []string{}},
		{"mood", Filter{Mood: "Comfort", Category: "Dessert"}, []string{"Choc (Dark) Cake"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Find(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
			assert.Equal(t, titles(matching(all, tt.filter)), titles(got))
		})
	}
}

func TestMongoStoreRatingUpsert(t *testing.T) {
	s := newMongoStore(t)
	ctx := context.Background()
	r := insertRecipe(t, s, primitive.NewObjectID().Hex(), "Leek Soup", Lunch, "Leek")
	rater := primitive.NewObjectID().Hex()

	_, err := s.UpsertRating(ctx, r.ID, Rating{User: rater, Rating: 2})
	require.NoError(t, err)
	ratings, err := s.UpsertRating(ctx, r.ID, Rating{User: rater, Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, []Rating{{User: rater, Rating: 5}}, ratings)

	_, err = s.UpsertRating(ctx, primitive.NewObjectID().Hex(), Rating{User: rater, Rating: 3})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestMongoStoreConcurrentRatings(t *testing.T) {
	s := newMongoStore(t)
	ctx := context.Background()
	r := insertRecipe(t, s, primitive.NewObjectID().Hex(), "Leek Soup", Lunch, "Leek")

	same := primitive.NewObjectID().Hex()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(v int) {
			defer wg.Done()
			_, err := s.UpsertRating(ctx, r.ID, Rating{User: same, Rating: v%5 + 1})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := s.UpsertRating(ctx, r.ID, Rating{User: primitive.NewObjectID().Hex(), Rating: 4})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, got.Ratings, 9, "one entry for the repeated rater plus eight distinct raters")
}

func TestMongoStoreCommentsAndCounts(t *testing.T) {
	s := newMongoStore(t)
	ctx := context.Background()
	alice := primitive.NewObjectID().Hex()
	bob := primitive.NewObjectID().Hex()
	soup := insertRecipe(t, s, alice, "Leek Soup", Lunch, "Leek")
	insertRecipe(t, s, alice, "Cake", Dessert, "Flour")
	insertRecipe(t, s, bob, "Salad", Lunch, "Lettuce")

	comments, err := s.AddComment(ctx, soup.ID, Comment{User: Profile{ID: bob}, Text: "Lovely", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, bob, comments[0].User.ID)
	assert.NotEmpty(t, comments[0].ID)

	counts, err := s.CountByAuthor(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{alice: 2, bob: 1}, counts)

	require.NoError(t, s.Delete(ctx, soup.ID))
	_, err = s.Get(ctx, soup.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	_, err = s.Get(ctx, "not-an-id")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
