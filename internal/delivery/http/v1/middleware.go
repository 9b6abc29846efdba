package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avdeyev/taskflow/internal/models"
)

const userCtxKey = "user"

func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	const authHeader = "Authorization"
	header := c.GetHeader(authHeader)
	if header == "" {
		h.logger.Error().Msg("authorization header required")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	const bearerPrefix = "Bearer"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix {
		h.logger.Error().Msg("invalid authorization header")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.ParseJWTToken(parts[1])
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to parse token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		h.logger.Error().
			Str("subject", claims.Subject).
			Msg("malformed token subject")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetByID(c, userID)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if !user.IsActive {
		h.logger.Warn().
			Int64("user_id", user.ID).
			Msg("deactivated user rejected")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	c.Set(userCtxKey, user)
	c.Next()
}

func currentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(userCtxKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}
