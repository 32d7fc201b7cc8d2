package handlers

import (
	"net/http"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// ConversationHandler handles direct messages
type ConversationHandler struct {
	conversations *services.ConversationService
}

func NewConversationHandler(conversations *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// CreateConversation opens (or returns) the 1:1 conversation with a user
func (h *ConversationHandler) CreateConversation(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	req := new(models.CreateConversationRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	conv, created, err := h.conversations.GetOrCreate(c.Request().Context(), userID, req.UserID)
	if err != nil {
		return httpError(err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, conv)
}

// ListConversations returns the caller's conversations with unread counts
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	summaries, err := h.conversations.ListForUser(userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"conversations": summaries})
}

// GetMessages returns the messages of a conversation in order
func (h *ConversationHandler) GetMessages(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	convID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	msgs, err := h.conversations.Messages(userID, convID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": msgs})
}

// SendMessage appends a message to a conversation
func (h *ConversationHandler) SendMessage(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	convID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	req := new(models.SendMessageRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	msg, err := h.conversations.Send(c.Request().Context(), userID, convID, *req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// MarkRead advances the caller's read cursor in a conversation
func (h *ConversationHandler) MarkRead(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	convID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	if err := h.conversations.MarkRead(c.Request().Context(), userID, convID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MuteRequest defines the request body for muting a conversation
type MuteRequest struct {
	Muted bool `json:"muted"`
}

// SetMuted flips the caller's mute flag on a conversation
func (h *ConversationHandler) SetMuted(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	convID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	req := new(MuteRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if err := h.conversations.SetMuted(userID, convID, req.Muted); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"is_muted": req.Muted})
}

// EditMessage replaces a message's content
func (h *ConversationHandler) EditMessage(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	msgID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	req := new(models.EditMessageRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	msg, err := h.conversations.EditMessage(c.Request().Context(), userID, msgID, req.Content)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, msg)
}

// DeleteMessage soft-deletes a message
func (h *ConversationHandler) DeleteMessage(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	msgID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	if err := h.conversations.DeleteMessage(c.Request().Context(), userID, msgID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetUnreadCount returns the caller's unread message total
func (h *ConversationHandler) GetUnreadCount(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	count, err := h.conversations.TotalUnread(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"unread_count": count})
}
