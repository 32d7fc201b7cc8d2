package handlers

import (
	"net/http"
	"strconv"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/pkg/logger"
	"github.com/labstack/echo/v4"
)

// PostHandler handles post CRUD and the post collections hanging off a user
type PostHandler struct {
	posts    repositories.PostRepository
	saves    repositories.SavedPostRepository
	enricher *PostEnricher
	log      *logger.Logger
}

func NewPostHandler(posts repositories.PostRepository, saves repositories.SavedPostRepository, enricher *PostEnricher, log *logger.Logger) *PostHandler {
	return &PostHandler{posts: posts, saves: saves, enricher: enricher, log: log}
}

// CreatePost creates a new post owned by the caller
func (h *PostHandler) CreatePost(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	req := new(models.CreatePostRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if req.MediaURL != "" && req.MediaKind == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "media_kind is required when media_url is set")
	}

	post := &models.Post{
		UserID:    userID,
		Content:   req.Content,
		PostType:  models.PostType(req.PostType),
		MediaURL:  req.MediaURL,
		MediaKind: models.MediaKind(req.MediaKind),
	}
	if err := h.posts.CreatePost(c.Request().Context(), post); err != nil {
		h.log.WithError(err).Error("Failed to create post")
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPost returns a single enriched post
func (h *PostHandler) GetPost(c echo.Context) error {
	viewerID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	post, err := h.posts.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	views, err := h.enricher.Enrich(c.Request().Context(), viewerID, []models.Post{*post})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, views[0])
}

// UpdatePost edits a post's content; only the owner may edit
func (h *PostHandler) UpdatePost(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	req := new(models.UpdatePostRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	postID := c.Param("id")
	post, err := h.posts.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return httpError(err)
	}
	if post.UserID != userID {
		return httpError(models.ErrForbidden)
	}

	post.Content = req.Content
	if err := h.posts.UpdatePost(c.Request().Context(), postID, post); err != nil {
		h.log.WithError(err).WithField("post_id", postID).Error("Failed to update post")
		return httpError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost removes a post; only the owner may delete
func (h *PostHandler) DeletePost(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	postID := c.Param("id")
	post, err := h.posts.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return httpError(err)
	}
	if post.UserID != userID {
		return httpError(models.ErrForbidden)
	}

	if err := h.posts.DeletePost(c.Request().Context(), postID); err != nil {
		h.log.WithError(err).WithField("post_id", postID).Error("Failed to delete post")
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetUserPosts returns a user's posts, newest first
func (h *PostHandler) GetUserPosts(c echo.Context) error {
	viewerID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	targetID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit < 1 || limit > 50 {
		limit = defaultFeedLimit
	}

	posts, err := h.posts.GetPostsByUserID(c.Request().Context(), targetID, (page-1)*limit, limit)
	if err != nil {
		return httpError(err)
	}

	views, err := h.enricher.Enrich(c.Request().Context(), viewerID, posts)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"posts": views,
		"meta":  map[string]int64{"page": page, "limit": limit},
	})
}

// SearchPosts finds public posts whose content matches the query
func (h *PostHandler) SearchPosts(c echo.Context) error {
	viewerID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing query parameter q")
	}

	posts, err := h.posts.SearchPosts(c.Request().Context(), query, defaultFeedLimit)
	if err != nil {
		return httpError(err)
	}

	views, err := h.enricher.Enrich(c.Request().Context(), viewerID, posts)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"posts": views})
}

// GetSavedPosts returns the caller's saved posts, most recently saved first.
// Saves pointing at posts that were deleted since are skipped.
func (h *PostHandler) GetSavedPosts(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	saved, err := h.saves.GetSavedPostsByUser(userID)
	if err != nil {
		return httpError(err)
	}

	posts := make([]models.Post, 0, len(saved))
	for _, s := range saved {
		post, err := h.posts.GetPostByID(c.Request().Context(), s.PostID)
		if err != nil {
			if err == models.ErrNotFound {
				continue
			}
			return httpError(err)
		}
		posts = append(posts, *post)
	}

	views, err := h.enricher.Enrich(c.Request().Context(), userID, posts)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"posts": views})
}
