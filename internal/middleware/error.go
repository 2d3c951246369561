package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/logger"
)

// ErrorHandler writes the last error attached to the gin context with
// c.Error, unless a handler already wrote a response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		WriteError(c, c.Errors.Last().Err)
	}
}

// WriteError sends err as {"error":{"code","message"}}. An *AppError keeps
// its status, code and message and has its internal cause logged. Anything
// else is logged and reported as a generic internal error.
func WriteError(c *gin.Context, err error) {
	log := logger.With(
		"request_id", c.GetString(requestIDKey),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)

	appErr := apperrors.ErrInternalServer
	if !errors.As(err, &appErr) {
		log.Errorw("unexpected error", "error", err.Error())
	} else if appErr.Internal != nil {
		log.Errorw("app error", "code", appErr.Code, "internal", appErr.Internal.Error())
	}

	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}
