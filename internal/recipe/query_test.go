package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rated(id string, values ...int) *Recipe {
	r := &Recipe{ID: id, Ratings: []Rating{}}
	for i, v := range values {
		r.Ratings = append(r.Ratings, Rating{User: string(rune('a' + i)), Rating: v})
	}
	return r
}

func ids(recipes []*Recipe) []string {
	out := make([]string, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, r.ID)
	}
	return out
}

func floatPtr(f float64) *float64 { return &f }

func TestFilterMatches(t *testing.T) {
	r := &Recipe{
		ID:          "r1",
		Title:       "Creamy Tomato Pasta",
		Description: "weeknight garlic dinner",
		Author:      Profile{ID: "u1"},
		Ingredients: []string{"Penne", "Crushed Tomatoes", "Garlic"},
		Category:    Dinner,
		Mood:        "Comfort",
		Ratings:     []Rating{{User: "u2", Rating: 4}, {User: "u3", Rating: 5}},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"author", Filter{Author: "u1"}, true},
		{"other author", Filter{Author: "u2"}, false},
		{"title substring ignores case", Filter{Search: "tomato"}, true},
		{"search does not look at description", Filter{Search: "garlic"}, false},
		{"category", Filter{Category: "Dinner"}, true},
		{"wrong category", Filter{Category: "Lunch"}, false},
		{"All category is no filter", Filter{Category: AllCategories}, true},
		{"ingredient substring", Filter{Ingredient: "tomat"}, true},
		{"missing ingredient", Filter{Ingredient: "basil"}, false},
		{"mood is exact", Filter{Mood: "Comfort"}, true},
		{"mood case differs", Filter{Mood: "comfort"}, false},
		{"average meets threshold inclusively", Filter{MinRating: floatPtr(4.5)}, true},
		{"average below threshold", Filter{MinRating: floatPtr(4.6)}, false},
		{"all predicates", Filter{Author: "u1", Search: "pasta", Category: "Dinner", Ingredient: "GARLIC", Mood: "Comfort", MinRating: floatPtr(4)}, true},
		{"one failing predicate", Filter{Author: "u1", Search: "pasta", Mood: "Quick"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(r))
		})
	}
}

func TestFilterMatchesExcludesUnrated(t *testing.T) {
	r := &Recipe{Title: "New Soup", Ratings: []Rating{}}

	assert.True(t, Filter{}.Matches(r))
	assert.False(t, Filter{MinRating: floatPtr(1)}.Matches(r))
	assert.False(t, Filter{MinRating: floatPtr(0)}.Matches(r))
}

func TestFilterNormalize(t *testing.T) {
	f := Filter{Author: " u1 ", Category: "All", Search: "  soup "}.Normalize()

	assert.Equal(t, "u1", f.Author)
	assert.Equal(t, "", f.Category)
	assert.Equal(t, "soup", f.Search)
}

func TestFilterByMinRating(t *testing.T) {
	recipes := []*Recipe{
		rated("low", 1, 2),
		rated("unrated"),
		rated("high", 5),
		rated("edge", 3, 4),
	}

	got := FilterByMinRating(recipes, 3.5)

	assert.Equal(t, []string{"high", "edge"}, ids(got))
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", DefaultContributorLimit},
		{"5", 5},
		{"all", NoLimit},
		{"abc", DefaultContributorLimit},
		{"0", DefaultContributorLimit},
		{"-2", DefaultContributorLimit},
		{" 7 ", 7},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLimit(tt.raw, DefaultContributorLimit))
		})
	}
}

func TestRankContributors(t *testing.T) {
	counts := map[string]int{"c": 2, "a": 5, "b": 2, "d": 1, "zero": 0}

	t.Run("default limit", func(t *testing.T) {
		got := RankContributors(counts, DefaultContributorLimit)
		assert.Equal(t, []AuthorCount{{"a", 5}, {"b", 2}, {"c", 2}}, got)
	})

	t.Run("no limit keeps every author with recipes", func(t *testing.T) {
		got := RankContributors(counts, NoLimit)
		assert.Equal(t, []AuthorCount{{"a", 5}, {"b", 2}, {"c", 2}, {"d", 1}}, got)
	})

	t.Run("limit larger than authors", func(t *testing.T) {
		assert.Len(t, RankContributors(counts, 10), 4)
	})
}

func TestSortTrending(t *testing.T) {
	recipes := []*Recipe{
		rated("unrated-1"),
		rated("three", 3),
		rated("five", 5),
		rated("unrated-2"),
		rated("low", 1),
		rated("also-three", 2, 4),
	}

	SortTrending(recipes)

	assert.Equal(t, []string{"five", "three", "also-three", "low", "unrated-1", "unrated-2"}, ids(recipes))
}
