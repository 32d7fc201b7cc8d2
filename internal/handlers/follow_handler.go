package handlers

import (
	"net/http"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles the follow edge and its derived lists
type FollowHandler struct {
	engagement *services.EngagementService
	follows    repositories.FollowRepository
}

func NewFollowHandler(engagement *services.EngagementService, follows repositories.FollowRepository) *FollowHandler {
	return &FollowHandler{engagement: engagement, follows: follows}
}

// ToggleFollow follows or unfollows a user
func (h *FollowHandler) ToggleFollow(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	targetID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	following, err := h.engagement.ToggleFollow(c.Request().Context(), userID, targetID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"is_following": following})
}

// GetFollowers lists the users following the given user
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	if _, err := getUserIDFromContext(c); err != nil {
		return err
	}
	targetID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	users, err := h.follows.GetFollowers(targetID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"users": compactUsers(users)})
}

// GetFollowing lists the users the given user follows
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	if _, err := getUserIDFromContext(c); err != nil {
		return err
	}
	targetID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	users, err := h.follows.GetFollowing(targetID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"users": compactUsers(users)})
}

func compactUsers(users []models.User) []models.UserCompact {
	compacts := make([]models.UserCompact, 0, len(users))
	for i := range users {
		compacts = append(compacts, users[i].ToCompact())
	}
	return compacts
}
