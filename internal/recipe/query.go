package recipe

import (
	"sort"
	"strconv"
	"strings"
)

// AllCategories is the category sentinel meaning "no category filter".
const AllCategories = "All"

// NoLimit disables truncation in RankContributors and Trending.
const NoLimit = -1

const (
	// DefaultContributorLimit applies when the limit parameter is absent or non-numeric.
	DefaultContributorLimit = 3
	// DefaultTrendingLimit is the size of the home page trending row.
	DefaultTrendingLimit = 4
)

// Filter selects recipes. Every non-empty field is a predicate and all of them
// must hold. MinRating is applied after the store query.
type Filter struct {
	Author     string
	Search     string
	Category   string
	Ingredient string
	Mood       string
	MinRating  *float64
}

// Normalize trims inputs and drops the "All" category sentinel.
func (f Filter) Normalize() Filter {
	f.Author = strings.TrimSpace(f.Author)
	f.Search = strings.TrimSpace(f.Search)
	f.Category = strings.TrimSpace(f.Category)
	f.Ingredient = strings.TrimSpace(f.Ingredient)
	f.Mood = strings.TrimSpace(f.Mood)
	if f.Category == AllCategories {
		f.Category = ""
	}
	return f
}

// Matches reports whether r satisfies every predicate of f, including MinRating.
// It is the reference predicate for in-memory stores; the Mongo and Postgres
// stores translate the same predicates into their native queries and their
// integration tests check the results against it.
func (f Filter) Matches(r *Recipe) bool {
	f = f.Normalize()
	if f.Author != "" && r.Author.ID != f.Author {
		return false
	}
	if f.Search != "" && !containsFold(r.Title, f.Search) {
		return false
	}
	if f.Category != "" && string(r.Category) != f.Category {
		return false
	}
	if f.Ingredient != "" && !anyContainsFold(r.Ingredients, f.Ingredient) {
		return false
	}
	if f.Mood != "" && r.Mood != f.Mood {
		return false
	}
	if f.MinRating != nil && !meetsMinRating(r, *f.MinRating) {
		return false
	}
	return true
}

// FilterByMinRating keeps recipes whose average is at least min, preserving
// order. Unrated recipes are always dropped.
func FilterByMinRating(recipes []*Recipe, min float64) []*Recipe {
	out := make([]*Recipe, 0, len(recipes))
	for _, r := range recipes {
		if meetsMinRating(r, min) {
			out = append(out, r)
		}
	}
	return out
}

func meetsMinRating(r *Recipe, min float64) bool {
	avg, ok := r.AverageRating()
	return ok && avg >= min
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func anyContainsFold(items []string, sub string) bool {
	for _, s := range items {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}

// ParseLimit interprets a limit query value: "all" means NoLimit, a positive
// integer is taken as is, anything else yields def.
func ParseLimit(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "all" {
		return NoLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// AuthorCount is the number of recipes owned by one author.
type AuthorCount struct {
	AuthorID string
	Count    int
}

// RankContributors orders authors by recipe count descending, breaking ties by
// ascending author id, and truncates to limit unless limit is NoLimit.
func RankContributors(counts map[string]int, limit int) []AuthorCount {
	ranked := make([]AuthorCount, 0, len(counts))
	for id, n := range counts {
		if n > 0 {
			ranked = append(ranked, AuthorCount{AuthorID: id, Count: n})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].AuthorID < ranked[j].AuthorID
	})
	if limit != NoLimit && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Contributor is an entry of the top-contributors ranking.
type Contributor struct {
	ID          string `json:"_id"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatarUrl"`
	RecipeCount int    `json:"recipeCount"`
}

// SortTrending orders recipes by average rating, highest first. Unrated
// recipes sort after every rated one; equal keys keep their original order.
func SortTrending(recipes []*Recipe) {
	sort.SliceStable(recipes, func(i, j int) bool {
		ai, iok := recipes[i].AverageRating()
		aj, jok := recipes[j].AverageRating()
		if iok != jok {
			return iok
		}
		return ai > aj
	})
}
