package recipe

import (
	"strings"
	"time"

	"chefshare/internal/apperror"
)

// DefaultImageURL is used whenever a recipe has no image.
const DefaultImageURL = "https://cdn.shopify.com/app-store/listing_images/158e4af652886027cc4d8339204f6af9/icon/CJvkpOLsqI0DEAE=.jpeg"

// Category is the fixed set of recipe categories.
type Category string

const (
	Breakfast Category = "Breakfast"
	Lunch     Category = "Lunch"
	Dinner    Category = "Dinner"
	Snacks    Category = "Snacks"
	Dessert   Category = "Dessert"
	Other     Category = "Other"
)

// Categories lists every valid category in display order.
var Categories = []Category{Breakfast, Lunch, Dinner, Snacks, Dessert, Other}

// Moods are the suggested mood tags. Mood itself is free-form.
var Moods = []string{"Comfort", "Healthy", "Quick", "Fancy", "Sweet"}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Profile is the public subset of a user embedded in recipe responses.
type Profile struct {
	ID        string `json:"_id"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Rating is one user's score for a recipe. A user holds at most one.
type Rating struct {
	User   string `json:"user"`
	Rating int    `json:"rating"`
}

// Comment is an append-only note on a recipe.
type Comment struct {
	ID        string    `json:"_id"`
	User      Profile   `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Recipe represents a user-submitted recipe.
type Recipe struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Author      Profile   `json:"author"`
	ImageURL    string    `json:"imageUrl"`
	Ingredients []string  `json:"ingredients"`
	Steps       []string  `json:"steps"`
	Category    Category  `json:"category"`
	CookingTime string    `json:"cookingTime,omitempty"`
	Calories    string    `json:"calories,omitempty"`
	Mood        string    `json:"mood,omitempty"`
	Ratings     []Rating  `json:"ratings"`
	Comments    []Comment `json:"comments"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AverageRating returns the mean of all ratings. ok is false for an unrated
// recipe, whose average is undefined rather than zero.
func (r *Recipe) AverageRating() (avg float64, ok bool) {
	if len(r.Ratings) == 0 {
		return 0, false
	}
	total := 0
	for _, rt := range r.Ratings {
		total += rt.Rating
	}
	return float64(total) / float64(len(r.Ratings)), true
}

// Validate normalises list fields and checks the write-time invariants.
func (r *Recipe) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Ingredients = compact(r.Ingredients)
	r.Steps = compact(r.Steps)
	if strings.TrimSpace(r.ImageURL) == "" {
		r.ImageURL = DefaultImageURL
	}

	if r.Title == "" || len(r.Ingredients) == 0 || len(r.Steps) == 0 {
		return apperror.Validation("Please add all required fields")
	}
	if !r.Category.Valid() {
		return apperror.Validation("`" + string(r.Category) + "` is not a valid category")
	}
	if r.Author.ID == "" {
		return apperror.Validation("recipe author is required")
	}
	return nil
}

// Input is the body accepted when creating a recipe.
type Input struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients" binding:"required,min=1"`
	Steps       []string `json:"steps" binding:"required,min=1"`
	Category    Category `json:"category" binding:"required,category"`
	CookingTime string   `json:"cookingTime"`
	Calories    string   `json:"calories"`
	Mood        string   `json:"mood"`
	ImageURL    string   `json:"imageUrl"`
}

func (in Input) recipe(authorID string) *Recipe {
	return &Recipe{
		Title:       in.Title,
		Description: in.Description,
		Author:      Profile{ID: authorID},
		ImageURL:    in.ImageURL,
		Ingredients: in.Ingredients,
		Steps:       in.Steps,
		Category:    in.Category,
		CookingTime: in.CookingTime,
		Calories:    in.Calories,
		Mood:        in.Mood,
		Ratings:     []Rating{},
		Comments:    []Comment{},
	}
}

// Patch is a partial update. Nil fields are left unchanged; the author,
// ratings and comments are never touched.
type Patch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Ingredients []string  `json:"ingredients"`
	Steps       []string  `json:"steps"`
	Category    *Category `json:"category" binding:"omitempty,category"`
	CookingTime *string   `json:"cookingTime"`
	Calories    *string   `json:"calories"`
	Mood        *string   `json:"mood"`
	ImageURL    *string   `json:"imageUrl"`
}

func (p Patch) apply(r *Recipe) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Ingredients != nil {
		r.Ingredients = p.Ingredients
	}
	if p.Steps != nil {
		r.Steps = p.Steps
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.CookingTime != nil {
		r.CookingTime = *p.CookingTime
	}
	if p.Calories != nil {
		r.Calories = *p.Calories
	}
	if p.Mood != nil {
		r.Mood = *p.Mood
	}
	// A blank image resets to the placeholder in Validate.
	if p.ImageURL != nil {
		r.ImageURL = *p.ImageURL
	}
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
