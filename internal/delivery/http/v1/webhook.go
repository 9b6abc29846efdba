package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mymmrac/telego"
)

// HandleTelegramWebhook receives bot updates pushed by Telegram.
// Anything that parses is acknowledged with 200 so Telegram does not
// retry it, even when handling failed; retrying a half-handled update
// would duplicate its side effects.
func (h *handlerImpl) HandleTelegramWebhook(c *gin.Context) {
	var update telego.Update
	err := c.ShouldBindJSON(&update)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("malformed telegram update")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	h.dispatcher.HandleUpdate(c, update)

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
