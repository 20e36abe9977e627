package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chefshare/internal/auth"
	"chefshare/internal/recipe"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	CORSOrigins []string
	// ImagesDir is served under /images when set.
	ImagesDir string
}

// NewRouter builds the gin engine with every route mounted under /api.
func NewRouter(h *Handler, tokens *auth.TokenService, revoked auth.RevocationChecker, cfg RouterConfig) *gin.Engine {
	if err := registerValidators(); err != nil {
		panic(err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	protect := auth.Protect(tokens, revoked)

	api := r.Group("/api")

	users := api.Group("/auth")
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.POST("/logout", protect, h.Logout)
	users.GET("/me", protect, h.GetMe)
	users.PUT("/save/:id", protect, h.ToggleSaved)
	users.PUT("/profile", protect, h.UpdateProfile)
	users.GET("/:id", h.GetUser)

	recipes := api.Group("/recipes")
	recipes.GET("", h.GetRecipes)
	recipes.POST("", protect, h.CreateRecipe)
	recipes.GET("/top-contributors", h.GetTopContributors)
	recipes.GET("/trending", h.GetTrending)
	recipes.GET("/:id", h.GetRecipe)
	recipes.PUT("/:id", protect, h.UpdateRecipe)
	recipes.DELETE("/:id", protect, h.DeleteRecipe)
	recipes.POST("/:id/comments", protect, h.AddComment)
	recipes.POST("/:id/rating", protect, h.AddRating)

	api.POST("/ai/suggest", protect, h.Suggest)
	api.POST("/uploads", protect, h.Upload)

	if cfg.ImagesDir != "" {
		r.Static("/images", cfg.ImagesDir)
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// corsConfig allows any origin, without credentials, when none are listed.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowOrigins = nil
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	}
	return c
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("category", validCategory); err != nil {
		return fmt.Errorf("failed to register category validator: %w", err)
	}
	return nil
}

func validCategory(fl validator.FieldLevel) bool {
	c, ok := fl.Field().Interface().(recipe.Category)
	return ok && c.Valid()
}
