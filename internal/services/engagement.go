package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/pkg/changefeed"
	"github.com/campusnet/backend/pkg/logger"
	"gorm.io/gorm"
)

// EngagementService owns reactions, follows, saves, idea participation and
// comments. Every mutation goes through the store's uniqueness constraints;
// conflicting duplicate writes are absorbed as no-op successes. Change events
// are published after the write commits, never before.
type EngagementService struct {
	posts     repositories.PostRepository
	comments  repositories.CommentRepository
	reactions repositories.ReactionRepository
	follows   repositories.FollowRepository
	saves     repositories.SavedPostRepository
	ideas     repositories.IdeaParticipantRepository
	users     repositories.UserRepository
	feed      changefeed.Publisher
	log       *logger.Logger
}

func NewEngagementService(
	posts repositories.PostRepository,
	comments repositories.CommentRepository,
	reactions repositories.ReactionRepository,
	follows repositories.FollowRepository,
	saves repositories.SavedPostRepository,
	ideas repositories.IdeaParticipantRepository,
	users repositories.UserRepository,
	feed changefeed.Publisher,
	log *logger.Logger,
) *EngagementService {
	return &EngagementService{
		posts:     posts,
		comments:  comments,
		reactions: reactions,
		follows:   follows,
		saves:     saves,
		ideas:     ideas,
		users:     users,
		feed:      feed,
		log:       log,
	}
}

// asNotFound translates gorm's record-not-found into the shared sentinel
func asNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}

// preview trims a string for denormalized previews and event payloads
func preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// publish emits a change event after a committed write. Publish failures are
// logged and do not fail the operation; the write already happened.
func (s *EngagementService) publish(ctx context.Context, key string, t changefeed.EventType, data interface{}) {
	event, err := changefeed.NewEvent(t, data)
	if err != nil {
		s.log.WithError(err).WithField("event", string(t)).Error("Failed to build change event")
		return
	}
	if err := s.feed.Publish(ctx, key, event); err != nil {
		s.log.WithError(err).WithField("event", string(t)).Error("Failed to publish change event")
	}
}

// resolveTarget returns the owner of a reaction target and, for comments, the
// post the comment belongs to.
func (s *EngagementService) resolveTarget(ctx context.Context, kind models.TargetKind, targetID string) (ownerID uint, postID string, err error) {
	switch kind {
	case models.TargetPost:
		post, err := s.posts.GetPostByID(ctx, targetID)
		if err != nil {
			return 0, "", err
		}
		return post.UserID, targetID, nil
	case models.TargetComment:
		id, err := strconv.ParseUint(targetID, 10, 32)
		if err != nil {
			return 0, "", models.ErrNotFound
		}
		comment, err := s.comments.GetCommentByID(uint(id))
		if err != nil {
			return 0, "", asNotFound(err)
		}
		return comment.UserID, comment.PostID, nil
	default:
		return 0, "", models.ErrNotFound
	}
}

// SetReaction applies the toggle contract for reactions: no existing reaction
// inserts one, the same type removes it, a different type replaces it in
// place. The returned type is the user's reaction after the call, empty when
// none. At no point does a reader observe two rows, or zero rows during a
// replace.
func (s *EngagementService) SetReaction(ctx context.Context, userID uint, kind models.TargetKind, targetID string, rtype models.ReactionType) (models.ReactionType, error) {
	ownerID, postID, err := s.resolveTarget(ctx, kind, targetID)
	if err != nil {
		return "", err
	}

	existing, err := s.reactions.Get(kind, targetID, userID)
	if err != nil {
		return "", err
	}

	var state models.ReactionType
	switch {
	case existing == nil:
		reaction := &models.Reaction{
			TargetKind: kind,
			TargetID:   targetID,
			UserID:     userID,
			Type:       rtype,
		}
		if err := s.reactions.Create(reaction); err != nil {
			return "", err
		}
		state = rtype
	case existing.Type == rtype:
		if err := s.reactions.Delete(existing.ID); err != nil {
			return "", err
		}
		state = ""
	default:
		if err := s.reactions.ReplaceType(existing.ID, rtype); err != nil {
			return "", err
		}
		state = rtype
	}

	data := changefeed.ReactionEventData{
		ActorID:    userID,
		OwnerID:    ownerID,
		TargetKind: string(kind),
		TargetID:   targetID,
		PostID:     postID,
		Reaction:   string(state),
	}
	if state == "" {
		s.publish(ctx, targetID, changefeed.EventReactionCleared, data)
	} else {
		s.publish(ctx, targetID, changefeed.EventReactionSet, data)
	}

	return state, nil
}

// CountReactions returns the exact committed reaction count for a target
func (s *EngagementService) CountReactions(kind models.TargetKind, targetID string) (int64, error) {
	return s.reactions.CountByTarget(kind, targetID)
}

// ToggleFollow creates or removes the follow edge, returning whether the
// caller follows the target after the call.
func (s *EngagementService) ToggleFollow(ctx context.Context, followerID, targetID uint) (bool, error) {
	if followerID == targetID {
		return false, models.ErrSelfFollow
	}
	if _, err := s.users.GetUserByID(targetID); err != nil {
		return false, asNotFound(err)
	}

	following, err := s.follows.Toggle(followerID, targetID)
	if err != nil {
		return false, err
	}

	data := changefeed.FollowEventData{FollowerID: followerID, FollowingID: targetID}
	if following {
		s.publish(ctx, strconv.FormatUint(uint64(targetID), 10), changefeed.EventFollowCreated, data)
	} else {
		s.publish(ctx, strconv.FormatUint(uint64(targetID), 10), changefeed.EventFollowDeleted, data)
	}
	return following, nil
}

// ToggleSave bookmarks or unbookmarks a post for the caller
func (s *EngagementService) ToggleSave(ctx context.Context, userID uint, postID string) (bool, error) {
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return false, err
	}

	saved, err := s.saves.Toggle(userID, postID)
	if err != nil {
		return false, err
	}

	data := changefeed.SaveEventData{UserID: userID, PostID: postID}
	if saved {
		s.publish(ctx, postID, changefeed.EventPostSaved, data)
	} else {
		s.publish(ctx, postID, changefeed.EventPostUnsaved, data)
	}
	return saved, nil
}

// JoinIdea adds the caller to an idea post's participant set. Joining twice
// is a no-op; joining anything that is not an idea post is a usage error.
func (s *EngagementService) JoinIdea(ctx context.Context, userID uint, postID string) error {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.PostType != models.PostTypeIdea {
		return models.ErrNotIdeaPost
	}

	joined, err := s.ideas.Join(userID, postID)
	if err != nil {
		return err
	}
	if joined {
		s.publish(ctx, postID, changefeed.EventIdeaJoined, changefeed.IdeaEventData{
			ActorID:     userID,
			PostID:      postID,
			PostOwnerID: post.UserID,
		})
	}
	return nil
}

// LeaveIdea removes the caller from an idea post's participant set
func (s *EngagementService) LeaveIdea(ctx context.Context, userID uint, postID string) error {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.PostType != models.PostTypeIdea {
		return models.ErrNotIdeaPost
	}

	left, err := s.ideas.Leave(userID, postID)
	if err != nil {
		return err
	}
	if left {
		s.publish(ctx, postID, changefeed.EventIdeaLeft, changefeed.IdeaEventData{
			ActorID:     userID,
			PostID:      postID,
			PostOwnerID: post.UserID,
		})
	}
	return nil
}

// IdeaParticipantCount returns the participant edge cardinality of a post
func (s *EngagementService) IdeaParticipantCount(postID string) (int64, error) {
	return s.ideas.CountByPostID(postID)
}

// PostComment creates a top-level comment or a reply. A reply's parent must
// be a top-level comment on the same post; anything else is rejected with
// ErrInvalidParent before any write.
func (s *EngagementService) PostComment(ctx context.Context, userID uint, postID string, parentID *uint, content string) (*models.Comment, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	var parentAuthorID uint
	if parentID != nil {
		parent, err := s.comments.GetCommentByID(*parentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.ErrInvalidParent
			}
			return nil, err
		}
		if parent.PostID != postID || parent.ParentID != nil {
			return nil, models.ErrInvalidParent
		}
		parentAuthorID = parent.UserID
	}

	comment := &models.Comment{
		PostID:   postID,
		UserID:   userID,
		ParentID: parentID,
		Content:  content,
	}
	if err := s.comments.CreateComment(comment); err != nil {
		return nil, err
	}

	if err := s.posts.IncrementCommentsCount(ctx, postID, 1); err != nil {
		s.log.WithError(err).WithField("post_id", postID).Error("Failed to bump comments count")
	}

	s.publish(ctx, postID, changefeed.EventCommentCreated, changefeed.CommentEventData{
		CommentID:      comment.ID,
		ActorID:        userID,
		PostID:         postID,
		PostOwnerID:    post.UserID,
		ParentID:       parentID,
		ParentAuthorID: parentAuthorID,
		Preview:        preview(content, 80),
	})

	return comment, nil
}

// EditComment updates a comment's content; only the author may edit
func (s *EngagementService) EditComment(userID, commentID uint, content string) (*models.Comment, error) {
	comment, err := s.comments.GetCommentByID(commentID)
	if err != nil {
		return nil, asNotFound(err)
	}
	if comment.UserID != userID {
		return nil, models.ErrForbidden
	}

	now := time.Now()
	comment.Content = content
	comment.EditedAt = &now
	if err := s.comments.UpdateComment(comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment soft-deletes a comment; only the author may delete. Deleting
// a top-level comment takes its replies with it so the post's comments count
// keeps matching what readers can see.
func (s *EngagementService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	comment, err := s.comments.GetCommentByID(commentID)
	if err != nil {
		return asNotFound(err)
	}
	if comment.UserID != userID {
		return models.ErrForbidden
	}

	removed, err := s.comments.DeleteCommentWithReplies(commentID)
	if err != nil {
		return err
	}

	if err := s.posts.IncrementCommentsCount(ctx, comment.PostID, -int(removed)); err != nil {
		s.log.WithError(err).WithField("post_id", comment.PostID).Error("Failed to drop comments count")
	}

	s.publish(ctx, comment.PostID, changefeed.EventCommentDeleted, changefeed.CommentEventData{
		CommentID: commentID,
		ActorID:   userID,
		PostID:    comment.PostID,
	})
	return nil
}

// ListComments returns the comment forest of a post: top-level comments in
// creation order, each with its replies and the caller's reaction state.
func (s *EngagementService) ListComments(ctx context.Context, userID uint, postID string) ([]models.CommentThread, error) {
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}

	topLevel, err := s.comments.GetTopLevelByPostID(postID)
	if err != nil {
		return nil, err
	}

	commentIDs := make([]string, len(topLevel))
	for i, c := range topLevel {
		commentIDs[i] = strconv.FormatUint(uint64(c.ID), 10)
	}
	userReactions, err := s.reactions.GetUserReactions(userID, models.TargetComment, commentIDs)
	if err != nil {
		return nil, err
	}

	threads := make([]models.CommentThread, 0, len(topLevel))
	for _, c := range topLevel {
		replies, err := s.comments.GetRepliesByParentID(c.ID)
		if err != nil {
			return nil, err
		}
		cid := strconv.FormatUint(uint64(c.ID), 10)
		count, err := s.reactions.CountByTarget(models.TargetComment, cid)
		if err != nil {
			return nil, err
		}
		if replies == nil {
			replies = []models.Comment{}
		}
		threads = append(threads, models.CommentThread{
			Comment:        c,
			Replies:        replies,
			ReactionsCount: count,
			UserReaction:   userReactions[cid],
		})
	}
	return threads, nil
}
