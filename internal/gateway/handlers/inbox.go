package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httppkg "github.com/opsdeck/opsdeck-backend/pkg/http"
)

// HandleListConversations returns the inbox conversation list, optionally
// filtered with the status query parameter.
func (h *Handler) HandleListConversations(c *gin.Context) {
	if h.inbox == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "inbox is not configured"})
		return
	}

	conversations, err := h.inbox.ListConversations(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.respondInboxError(c, "Failed to list conversations", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// HandleToggleConversation flips a conversation between open and resolved.
func (h *Handler) HandleToggleConversation(c *gin.Context) {
	if h.inbox == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "inbox is not configured"})
		return
	}

	conversationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation id must be a number"})
		return
	}

	result, err := h.inbox.ToggleConversationStatus(c.Request.Context(), conversationID)
	if err != nil {
		h.respondInboxError(c, "Failed to toggle conversation status", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// respondInboxError relays the inbox status code when there is one and maps
// everything else to 502.
func (h *Handler) respondInboxError(c *gin.Context, message string, err error) {
	h.logger.Errorf("%s: %v", message, err)

	var httpErr *httppkg.HTTPError
	if errors.As(err, &httpErr) {
		c.JSON(httpErr.StatusCode, gin.H{"error": httpErr.Message})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "inbox is unreachable"})
}
