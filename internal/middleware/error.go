package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/logger"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Kind      apperrors.Kind `json:"kind,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// WriteError writes err as a JSON error response. AppErrors are returned
// with their code and message; unexpected errors are logged and return a
// generic internal error to avoid leaking details.
func WriteError(c *gin.Context, err error) {
	requestID := c.GetString(requestIDKey)

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.Get().Errorw("unexpected error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"request_id", requestID,
		)
		appErr = apperrors.ErrInternalServer
	} else if appErr.Internal != nil {
		logger.Get().Errorw("app error",
			"code", appErr.Code,
			"message", appErr.Message,
			"internal", appErr.Internal.Error(),
			"path", c.Request.URL.Path,
			"request_id", requestID,
		)
	}

	c.JSON(appErr.StatusCode, gin.H{"error": ErrorBody{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Kind:      appErr.Kind,
		RequestID: requestID,
	}})
}

func abortWithError(c *gin.Context, err error) {
	WriteError(c, err)
	c.Abort()
}

// ErrorHandler returns a Gin middleware that converts errors set on the Gin
// context into consistent JSON error responses.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		// Process the last error (most relevant in a middleware chain)
		WriteError(c, c.Errors.Last().Err)
	}
}
