package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "vaultcore/internal/errors"
)

var (
	errIngestDisabled = &apperrors.AppError{Code: "INGEST_NOT_CONFIGURED", Message: "Price ingestion is not configured", Kind: apperrors.KindInternal, StatusCode: http.StatusServiceUnavailable}
	errInvalidAPIKey  = &apperrors.AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", Kind: apperrors.KindAuthorization, StatusCode: http.StatusUnauthorized}
)

// APIKeyAuth guards machine-to-machine routes such as price ingestion with
// the X-API-Key header. An empty key disables the routes.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			abortWithError(c, errIngestDisabled)
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			abortWithError(c, errInvalidAPIKey)
			return
		}
		c.Next()
	}
}
