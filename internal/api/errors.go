package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"chefshare/internal/apperror"
	"chefshare/internal/logging"
)

// respondError writes the JSON error body for err. Server-side failures are
// logged; the client only sees a generic message for them.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	if errors.Is(err, context.DeadlineExceeded) {
		logging.Ctx(c.Request.Context()).Warn().Err(err).Str("path", c.FullPath()).Msg("request timed out")
		c.JSON(http.StatusRequestTimeout, apperror.ErrorResponse{Message: "Request timed out"})
		return
	}

	status, body := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, body)
}

// bindJSON decodes the request body into dst. On failure it writes a 400 and
// returns false; fallback is used unless a field-specific message applies.
func bindJSON(c *gin.Context, dst interface{}, fallback string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperror.Validation(bindingMessage(err, fallback)))
		return false
	}
	return true
}

func bindingMessage(err error, fallback string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fallback
	}
	for _, fe := range verrs {
		if fe.Tag() == "category" {
			return fmt.Sprintf("`%v` is not a valid category", fe.Value())
		}
	}
	return fallback
}
