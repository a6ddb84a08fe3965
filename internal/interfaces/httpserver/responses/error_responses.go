package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viewcasthq/viewcast-server/internal/domain/user"
	"github.com/viewcasthq/viewcast-server/internal/domain/video"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleError maps domain errors to HTTP responses. Unrecognized errors
// become a 500 with a generic message so internals never leak.
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, video.ErrNotFound), errors.Is(err, user.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, video.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, video.ErrTooLarge):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
	case errors.Is(err, video.ErrUnsupportedType),
		errors.Is(err, video.ErrValidation),
		errors.Is(err, user.ErrInvalidRole),
		errors.Is(err, user.ErrUsernameTaken),
		errors.Is(err, user.ErrEmailTaken):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, user.ErrInvalidCredentials), errors.Is(err, user.ErrInvalidToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// BadRequest reports a malformed request body or parameter.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: message})
}
