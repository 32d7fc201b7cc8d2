package handlers

import (
	"net/http"

	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// IdeaHandler handles joining and leaving idea posts
type IdeaHandler struct {
	engagement *services.EngagementService
	ideas      repositories.IdeaParticipantRepository
	users      repositories.UserRepository
}

func NewIdeaHandler(engagement *services.EngagementService, ideas repositories.IdeaParticipantRepository, users repositories.UserRepository) *IdeaHandler {
	return &IdeaHandler{engagement: engagement, ideas: ideas, users: users}
}

// JoinIdea adds the caller to an idea's participants
func (h *IdeaHandler) JoinIdea(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	postID := c.Param("id")

	if err := h.engagement.JoinIdea(c.Request().Context(), userID, postID); err != nil {
		return httpError(err)
	}

	count, err := h.engagement.IdeaParticipantCount(postID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"is_participant": true, "participants_count": count})
}

// LeaveIdea removes the caller from an idea's participants
func (h *IdeaHandler) LeaveIdea(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	postID := c.Param("id")

	if err := h.engagement.LeaveIdea(c.Request().Context(), userID, postID); err != nil {
		return httpError(err)
	}

	count, err := h.engagement.IdeaParticipantCount(postID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"is_participant": false, "participants_count": count})
}

// GetParticipants lists the users who joined an idea
func (h *IdeaHandler) GetParticipants(c echo.Context) error {
	if _, err := getUserIDFromContext(c); err != nil {
		return err
	}

	ids, err := h.ideas.GetParticipantIDs(c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	users, err := h.users.GetUsersByIDs(ids)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"users": compactUsers(users)})
}
