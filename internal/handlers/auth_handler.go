package handlers

import (
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/pkg/logger"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler handles signup, signin and Firebase token exchange. Every path
// ends in the same local JWT so the rest of the API only ever sees one token
// format.
type AuthHandler struct {
	users        repositories.UserRepository
	firebaseAuth *auth.Client
	jwtSecret    string
	log          *logger.Logger
}

func NewAuthHandler(users repositories.UserRepository, firebaseAuth *auth.Client, jwtSecret string, log *logger.Logger) *AuthHandler {
	return &AuthHandler{users: users, firebaseAuth: firebaseAuth, jwtSecret: jwtSecret, log: log}
}

// SigninRequest defines the request body for email/password signin
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) issueToken(user *models.User) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(72 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}

// Signup registers a local account
func (h *AuthHandler) Signup(c echo.Context) error {
	req := new(models.CreateLocalUserRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	if _, err := h.users.GetUserByEmail(req.Email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "Email already registered")
	}
	if _, err := h.users.GetUserByUsername(req.Username); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "Username already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.WithError(err).Error("Failed to hash password")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
	}

	user := &models.User{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: string(hashed),
	}
	if err := h.users.CreateUser(user); err != nil {
		h.log.WithError(err).Error("Failed to create user")
		return httpError(err)
	}

	token, err := h.issueToken(user)
	if err != nil {
		h.log.WithError(err).Error("Failed to sign token")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create session")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{"token": token, "user": user})
}

// Signin authenticates a local account with email and password
func (h *AuthHandler) Signin(c echo.Context) error {
	req := new(SigninRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	user, err := h.users.GetUserByEmail(req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	token, err := h.issueToken(user)
	if err != nil {
		h.log.WithError(err).Error("Failed to sign token")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create session")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"token": token, "user": user})
}

// FirebaseLogin exchanges a Firebase ID token for a local JWT, creating the
// profile row on first login.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase auth is not configured")
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	idToken := strings.TrimPrefix(header, "Bearer ")
	if idToken == "" || idToken == header {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing Firebase ID token")
	}

	decoded, err := h.firebaseAuth.VerifyIDToken(c.Request().Context(), idToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	user, err := h.users.GetUserByFirebaseUID(decoded.UID)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			h.log.WithError(err).Error("Failed to look up user")
			return httpError(err)
		}

		email, _ := decoded.Claims["email"].(string)
		name, _ := decoded.Claims["name"].(string)
		uid := decoded.UID
		user = &models.User{
			Username:    "user_" + uid[:8],
			FullName:    name,
			Email:       email,
			FirebaseUID: &uid,
		}
		if err := h.users.CreateUser(user); err != nil {
			h.log.WithError(err).Error("Failed to create user from Firebase token")
			return httpError(err)
		}
	}

	token, err := h.issueToken(user)
	if err != nil {
		h.log.WithError(err).Error("Failed to sign token")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create session")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"token": token, "user": user})
}
