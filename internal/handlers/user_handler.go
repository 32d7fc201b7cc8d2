package handlers

import (
	"net/http"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/pkg/logger"
	"github.com/labstack/echo/v4"
)

// UserHandler handles profile reads and updates
type UserHandler struct {
	users   repositories.UserRepository
	follows repositories.FollowRepository
	log     *logger.Logger
}

func NewUserHandler(users repositories.UserRepository, follows repositories.FollowRepository, log *logger.Logger) *UserHandler {
	return &UserHandler{users: users, follows: follows, log: log}
}

// ProfileResponse is a user enriched with follow counts and, for other
// people's profiles, whether the viewer follows them.
type ProfileResponse struct {
	*models.User
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	IsFollowing    bool  `json:"is_following,omitempty"`
}

func (h *UserHandler) profile(viewerID uint, user *models.User) (*ProfileResponse, error) {
	followers, err := h.follows.GetFollowersCount(user.ID)
	if err != nil {
		return nil, err
	}
	following, err := h.follows.GetFollowingCount(user.ID)
	if err != nil {
		return nil, err
	}

	resp := &ProfileResponse{User: user, FollowersCount: followers, FollowingCount: following}
	if viewerID != 0 && viewerID != user.ID {
		resp.IsFollowing, err = h.follows.IsFollowing(viewerID, user.ID)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// GetMe returns the authenticated user's own profile
func (h *UserHandler) GetMe(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	user, err := h.users.GetUserByID(userID)
	if err != nil {
		return httpError(err)
	}

	resp, err := h.profile(userID, user)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// UpdateMe updates the authenticated user's profile fields
func (h *UserHandler) UpdateMe(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	req := new(models.UpdateUserRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	user, err := h.users.GetUserByID(userID)
	if err != nil {
		return httpError(err)
	}

	if req.Username != "" && req.Username != user.Username {
		if _, err := h.users.GetUserByUsername(req.Username); err == nil {
			return echo.NewHTTPError(http.StatusConflict, "Username already taken")
		}
		user.Username = req.Username
	}
	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if req.Career != "" {
		user.Career = req.Career
	}
	if req.InstitutionName != "" {
		user.InstitutionName = req.InstitutionName
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}
	if req.CoverURL != "" {
		user.CoverURL = req.CoverURL
	}

	if err := h.users.UpdateUser(user); err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("Failed to update user")
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// GetUserByID returns another user's profile with follow counts
func (h *UserHandler) GetUserByID(c echo.Context) error {
	viewerID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	targetID, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	user, err := h.users.GetUserByID(targetID)
	if err != nil {
		return httpError(err)
	}

	resp, err := h.profile(viewerID, user)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetUserByUsername returns a profile looked up by handle
func (h *UserHandler) GetUserByUsername(c echo.Context) error {
	viewerID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	user, err := h.users.GetUserByUsername(c.Param("username"))
	if err != nil {
		return httpError(err)
	}

	resp, err := h.profile(viewerID, user)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// SearchUsers finds users by username, full name or career
func (h *UserHandler) SearchUsers(c echo.Context) error {
	if _, err := getUserIDFromContext(c); err != nil {
		return err
	}

	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing query parameter q")
	}

	users, err := h.users.SearchUsers(query)
	if err != nil {
		return httpError(err)
	}
	if users == nil {
		users = []models.User{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"users": users})
}
