package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/pkg/logger"
	"github.com/labstack/echo/v4"
)

const defaultFeedLimit = 20

// PostView is a post enriched with its author, engagement counts and the
// viewer's own state. Counts come from the edge tables, not cached fields.
type PostView struct {
	models.Post
	Author            models.UserCompact  `json:"author"`
	ReactionsCount    int64               `json:"reactions_count"`
	UserReaction      models.ReactionType `json:"user_reaction,omitempty"`
	IsSaved           bool                `json:"is_saved"`
	ParticipantsCount int64               `json:"participants_count,omitempty"`
	IsParticipant     bool                `json:"is_participant,omitempty"`
}

// PostEnricher batches the per-post lookups shared by the feed, profile,
// search and saved-posts endpoints.
type PostEnricher struct {
	users     repositories.UserRepository
	reactions repositories.ReactionRepository
	saves     repositories.SavedPostRepository
	ideas     repositories.IdeaParticipantRepository
}

func NewPostEnricher(
	users repositories.UserRepository,
	reactions repositories.ReactionRepository,
	saves repositories.SavedPostRepository,
	ideas repositories.IdeaParticipantRepository,
) *PostEnricher {
	return &PostEnricher{users: users, reactions: reactions, saves: saves, ideas: ideas}
}

// Enrich resolves authors and viewer state for a page of posts
func (e *PostEnricher) Enrich(ctx context.Context, viewerID uint, posts []models.Post) ([]PostView, error) {
	postIDs := make([]string, len(posts))
	authorIDs := make([]uint, 0, len(posts))
	seen := make(map[uint]bool)
	for i, p := range posts {
		postIDs[i] = p.ID.Hex()
		if !seen[p.UserID] {
			seen[p.UserID] = true
			authorIDs = append(authorIDs, p.UserID)
		}
	}

	authors, err := e.users.GetUsersByIDs(authorIDs)
	if err != nil {
		return nil, err
	}
	authorByID := make(map[uint]models.UserCompact, len(authors))
	for i := range authors {
		authorByID[authors[i].ID] = authors[i].ToCompact()
	}

	viewerReactions, err := e.reactions.GetUserReactions(viewerID, models.TargetPost, postIDs)
	if err != nil {
		return nil, err
	}
	savedByID, err := e.saves.GetSavedPostIDs(viewerID, postIDs)
	if err != nil {
		return nil, err
	}

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		id := p.ID.Hex()
		count, err := e.reactions.CountByTarget(models.TargetPost, id)
		if err != nil {
			return nil, err
		}

		view := PostView{
			Post:           p,
			Author:         authorByID[p.UserID],
			ReactionsCount: count,
			UserReaction:   viewerReactions[id],
			IsSaved:        savedByID[id],
		}
		if p.PostType == models.PostTypeIdea {
			view.ParticipantsCount, err = e.ideas.CountByPostID(id)
			if err != nil {
				return nil, err
			}
			view.IsParticipant, err = e.ideas.IsParticipant(viewerID, id)
			if err != nil {
				return nil, err
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// FeedHandler serves the public post feed
type FeedHandler struct {
	posts    repositories.PostRepository
	enricher *PostEnricher
	log      *logger.Logger
}

func NewFeedHandler(posts repositories.PostRepository, enricher *PostEnricher, log *logger.Logger) *FeedHandler {
	return &FeedHandler{posts: posts, enricher: enricher, log: log}
}

// GetFeed returns public posts, newest first, optionally filtered by type
func (h *FeedHandler) GetFeed(c echo.Context) error {
	viewerID, err := getUserIDFromContext(c)
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

	postType := models.PostType(c.QueryParam("type"))

	posts, err := h.posts.GetFeedPosts(c.Request().Context(), postType, (page-1)*limit, limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to load feed")
		return httpError(err)
	}

	views, err := h.enricher.Enrich(c.Request().Context(), viewerID, posts)
	if err != nil {
		h.log.WithError(err).Error("Failed to enrich feed")
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"posts": views,
		"meta":  map[string]int64{"page": page, "limit": limit},
	})
}
