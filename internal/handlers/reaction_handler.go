package handlers

import (
	"net/http"
	"strconv"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// ReactionHandler handles setting and clearing reactions. One endpoint covers
// the whole toggle contract: set, replace and clear.
type ReactionHandler struct {
	engagement *services.EngagementService
}

func NewReactionHandler(engagement *services.EngagementService) *ReactionHandler {
	return &ReactionHandler{engagement: engagement}
}

func (h *ReactionHandler) setReaction(c echo.Context, kind models.TargetKind, targetID string) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	req := new(models.SetReactionRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	state, err := h.engagement.SetReaction(c.Request().Context(), userID, kind, targetID, models.ReactionType(req.Type))
	if err != nil {
		return httpError(err)
	}

	count, err := h.engagement.CountReactions(kind, targetID)
	if err != nil {
		return httpError(err)
	}

	resp := map[string]interface{}{"reactions_count": count}
	if state == "" {
		resp["user_reaction"] = nil
	} else {
		resp["user_reaction"] = state
	}
	return c.JSON(http.StatusOK, resp)
}

// SetPostReaction toggles the caller's reaction on a post
func (h *ReactionHandler) SetPostReaction(c echo.Context) error {
	return h.setReaction(c, models.TargetPost, c.Param("id"))
}

// SetCommentReaction toggles the caller's reaction on a comment
func (h *ReactionHandler) SetCommentReaction(c echo.Context) error {
	commentID, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	return h.setReaction(c, models.TargetComment, strconv.FormatUint(uint64(commentID), 10))
}
