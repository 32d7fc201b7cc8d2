package handlers

import (
	"net/http"

	"github.com/campusnet/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// SavedPostHandler handles the save/bookmark toggle
type SavedPostHandler struct {
	engagement *services.EngagementService
}

func NewSavedPostHandler(engagement *services.EngagementService) *SavedPostHandler {
	return &SavedPostHandler{engagement: engagement}
}

// ToggleSave saves or unsaves a post for the caller
func (h *SavedPostHandler) ToggleSave(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	saved, err := h.engagement.ToggleSave(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"is_saved": saved})
}
