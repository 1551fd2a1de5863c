package middlewares

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pepasjc/savesync/internal/server/handlers/api"
)

const apiKeyHeader = "X-API-Key"

var errInvalidAPIKey = errors.New("invalid or missing api key")

// APIKeyAuth validates the shared-secret X-API-Key header. This is the
// entire auth model: console homebrew clients hold one static key.
func APIKeyAuth(key string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		presented := ctx.GetHeader(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAccessDenied, errInvalidAPIKey)
			return
		}
		ctx.Next()
	}
}
