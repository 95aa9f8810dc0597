package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmbizsuite/console_backend/models"
	"github.com/mmbizsuite/console_backend/utils"
)

// BusinessMiddleware resolves the session's username to its tenant and puts
// the business id on the request context. Everything behind it (models,
// tenant guard) scopes by that id. Requests without a session are rejected;
// mount this only on the authenticated API group.
func BusinessMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		username, ok := utils.GetUsernameFromContext(ctx)
		if !ok || username == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		businessId, err := models.GetBusinessIdByUsername(ctx, username)
		if err != nil || businessId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no business for session"})
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(utils.SetBusinessIdInContext(ctx, businessId))
		c.Next()
	}
}
