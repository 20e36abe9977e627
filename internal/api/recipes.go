package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chefshare/internal/apperror"
	"chefshare/internal/auth"
	"chefshare/internal/recipe"
)

type ratingInput struct {
	Rating int `json:"rating" binding:"required,min=1,max=5"`
}

type commentInput struct {
	Text string `json:"text" binding:"required"`
}

// GetRecipes lists recipes matching the query filters.
func (h *Handler) GetRecipes(c *gin.Context) {
	f := recipe.Filter{
		Author:     c.Query("author"),
		Search:     c.Query("search"),
		Category:   c.Query("category"),
		Ingredient: c.Query("ingredient"),
		Mood:       c.Query("mood"),
	}
	if raw := strings.TrimSpace(c.Query("minRating")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(c, apperror.Validation("minRating must be a number"))
			return
		}
		f.MinRating = &v
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	recipes, err := h.Recipes.List(ctx, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

// GetRecipe returns one recipe with author and commenters populated.
func (h *Handler) GetRecipe(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	r, err := h.Recipes.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// CreateRecipe stores a recipe authored by the caller.
func (h *Handler) CreateRecipe(c *gin.Context) {
	var in recipe.Input
	if !bindJSON(c, &in, "Please add all required fields") {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	r, err := h.Recipes.Create(ctx, auth.UserID(ctx), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// UpdateRecipe applies a partial update to a recipe the caller owns.
func (h *Handler) UpdateRecipe(c *gin.Context) {
	var p recipe.Patch
	if !bindJSON(c, &p, "Invalid recipe update") {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	r, err := h.Recipes.Update(ctx, auth.UserID(ctx), c.Param("id"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// DeleteRecipe removes a recipe the caller owns.
func (h *Handler) DeleteRecipe(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id, err := h.Recipes.Delete(ctx, auth.UserID(ctx), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// AddComment appends a comment and returns the recipe's comment list.
func (h *Handler) AddComment(c *gin.Context) {
	var in commentInput
	if !bindJSON(c, &in, "Comment text is required") {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	comments, err := h.Recipes.Comment(ctx, auth.UserID(ctx), c.Param("id"), in.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comments)
}

// AddRating sets the caller's rating and returns the recipe's rating list.
func (h *Handler) AddRating(c *gin.Context) {
	var in ratingInput
	if !bindJSON(c, &in, "Rating must be between 1 and 5") {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	ratings, err := h.Recipes.Rate(ctx, auth.UserID(ctx), c.Param("id"), in.Rating)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ratings)
}

// GetTopContributors ranks authors by recipe count. limit=all disables the cap.
func (h *Handler) GetTopContributors(c *gin.Context) {
	limit := recipe.ParseLimit(c.Query("limit"), recipe.DefaultContributorLimit)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	contributors, err := h.Recipes.TopContributors(ctx, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contributors)
}

// GetTrending returns the highest rated recipes.
func (h *Handler) GetTrending(c *gin.Context) {
	limit := recipe.ParseLimit(c.Query("limit"), recipe.DefaultTrendingLimit)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	recipes, err := h.Recipes.Trending(ctx, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}
