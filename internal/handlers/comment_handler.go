package handlers

import (
	"net/http"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles comments and replies on posts
type CommentHandler struct {
	engagement *services.EngagementService
}

func NewCommentHandler(engagement *services.EngagementService) *CommentHandler {
	return &CommentHandler{engagement: engagement}
}

// CreateComment adds a comment or reply to a post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	req := new(models.CreateCommentRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	comment, err := h.engagement.PostComment(c.Request().Context(), userID, c.Param("post_id"), req.ParentID, req.Content)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// ListComments returns the comment threads of a post
func (h *CommentHandler) ListComments(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	threads, err := h.engagement.ListComments(c.Request().Context(), userID, c.Param("post_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"comments": threads})
}

// UpdateComment edits a comment's content
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	commentID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	req := new(models.UpdateCommentRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	comment, err := h.engagement.EditComment(userID, commentID, req.Content)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, comment)
}

// DeleteComment removes a comment
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	commentID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	if err := h.engagement.DeleteComment(c.Request().Context(), userID, commentID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
