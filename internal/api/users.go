package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chefshare/internal/auth"
	"chefshare/internal/logging"
	"chefshare/internal/user"
)

// Register creates an account and returns a session.
func (h *Handler) Register(c *gin.Context) {
	var in user.RegisterInput
	if !bindJSON(c, &in, "Please add all fields") {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	s, err := h.Users.Register(ctx, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// Login exchanges credentials for a session.
func (h *Handler) Login(c *gin.Context) {
	var in user.LoginInput
	if !bindJSON(c, &in, "Invalid credentials") {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	s, err := h.Users.Login(ctx, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Logout revokes the token that authenticated the request.
func (h *Handler) Logout(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if claims, ok := auth.ClaimsFrom(ctx); ok && h.Revoker != nil {
		if err := h.Revoker.Revoke(ctx, claims); err != nil {
			// The client drops its token either way.
			logging.Ctx(ctx).Warn().Err(err).Msg("failed to revoke token")
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GetMe returns the caller's account with saved recipes.
func (h *Handler) GetMe(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	a, err := h.Users.Me(ctx, auth.UserID(ctx))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GetUser returns a public profile.
func (h *Handler) GetUser(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	u, err := h.Users.PublicProfile(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateProfile edits the caller's profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var in user.ProfileInput
	if !bindJSON(c, &in, "Invalid profile update") {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	s, err := h.Users.UpdateProfile(ctx, auth.UserID(ctx), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// ToggleSaved saves or unsaves a recipe for the caller.
func (h *Handler) ToggleSaved(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	saved, err := h.Users.ToggleSaved(ctx, auth.UserID(ctx), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
