package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftmarket/go-artisan-marketplace/internal/messaging"
)

type messageHandler struct {
	store *messaging.Store
}

// listConversation returns the thread between the caller and another user.
// The caller is always one end of the conversation, so no one can read a
// thread they are not part of.
func (h *messageHandler) listConversation(c *gin.Context) {
	actor := actorFrom(c)
	other := c.Param("userId")

	messages, err := h.store.ListConversation(c.Request.Context(), actor.ID, other)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
