package router

import (
	"github.com/campusnet/backend/internal/handlers"
	"github.com/campusnet/backend/internal/middleware"
	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/internal/services"
	"github.com/campusnet/backend/pkg/cache"
	"github.com/campusnet/backend/pkg/changefeed"
	"github.com/campusnet/backend/pkg/config"
	"github.com/campusnet/backend/pkg/firebase"
	"github.com/campusnet/backend/pkg/logger"
	"github.com/campusnet/backend/pkg/realtime"
	"github.com/campusnet/backend/pkg/storage"
	"github.com/campusnet/backend/validators"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Deps carries the external connections the router wires together. Firebase,
// redis and the change feed may be nil in reduced environments; the affected
// endpoints degrade instead of the whole server refusing to start.
type Deps struct {
	Cfg      *config.Config
	DB       *config.DB
	Firebase *firebase.App
	Redis    *cache.RedisClient
	Feed     changefeed.Publisher
	Log      *logger.Logger
}

// New builds the echo server with every route wired
func New(d Deps) (*echo.Echo, error) {
	if err := d.DB.Postgres.AutoMigrate(
		&models.User{},
		&models.Comment{},
		&models.Reaction{},
		&models.Follow{},
		&models.SavedPost{},
		&models.IdeaParticipant{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.Notification{},
	); err != nil {
		return nil, err
	}

	userRepo := repositories.NewPostgresUserRepository(d.DB.Postgres)
	commentRepo := repositories.NewPostgresCommentRepository(d.DB.Postgres)
	reactionRepo := repositories.NewPostgresReactionRepository(d.DB.Postgres)
	followRepo := repositories.NewPostgresFollowRepository(d.DB.Postgres)
	savedRepo := repositories.NewPostgresSavedPostRepository(d.DB.Postgres)
	ideaRepo := repositories.NewPostgresIdeaParticipantRepository(d.DB.Postgres)
	convRepo := repositories.NewPostgresConversationRepository(d.DB.Postgres)
	msgRepo := repositories.NewPostgresMessageRepository(d.DB.Postgres)
	notifRepo := repositories.NewPostgresNotificationRepository(d.DB.Postgres)
	postRepo := repositories.NewMongoPostRepository(d.DB.Mongo.Database("campusnet"))

	engagement := services.NewEngagementService(postRepo, commentRepo, reactionRepo, followRepo, savedRepo, ideaRepo, userRepo, d.Feed, d.Log)

	var unreadCache services.UnreadCache
	var hub *realtime.Hub
	if d.Redis != nil {
		unreadCache = d.Redis
		hub = realtime.NewHub(d.Redis.Client())
	}
	conversations := services.NewConversationService(convRepo, msgRepo, userRepo, d.Feed, unreadCache, d.Log)

	enricher := handlers.NewPostEnricher(userRepo, reactionRepo, savedRepo, ideaRepo)

	var authHandler *handlers.AuthHandler
	var uploadHandler *handlers.UploadHandler
	if d.Firebase != nil {
		authHandler = handlers.NewAuthHandler(userRepo, d.Firebase.AuthClient, d.Cfg.JWTSecret, d.Log)
		uploadHandler = handlers.NewUploadHandler(storage.NewUploader(d.Firebase.Bucket, d.Firebase.BucketName), d.Log)
	} else {
		authHandler = handlers.NewAuthHandler(userRepo, nil, d.Cfg.JWTSecret, d.Log)
		uploadHandler = handlers.NewUploadHandler(nil, d.Log)
	}

	userHandler := handlers.NewUserHandler(userRepo, followRepo, d.Log)
	postHandler := handlers.NewPostHandler(postRepo, savedRepo, enricher, d.Log)
	feedHandler := handlers.NewFeedHandler(postRepo, enricher, d.Log)
	commentHandler := handlers.NewCommentHandler(engagement)
	reactionHandler := handlers.NewReactionHandler(engagement)
	followHandler := handlers.NewFollowHandler(engagement, followRepo)
	savedHandler := handlers.NewSavedPostHandler(engagement)
	ideaHandler := handlers.NewIdeaHandler(engagement, ideaRepo, userRepo)
	convHandler := handlers.NewConversationHandler(conversations)
	notifHandler := handlers.NewNotificationHandler(notifRepo, hub, d.Log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	e.GET("/health", handlers.HealthCheck)

	api := e.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/signin", authHandler.Signin)
	authGroup.POST("/firebase", authHandler.FirebaseLogin)

	protected := api.Group("", middleware.JWTAuth(d.Cfg.JWTSecret))

	protected.GET("/me", userHandler.GetMe)
	protected.PUT("/me", userHandler.UpdateMe)
	protected.GET("/users/search", userHandler.SearchUsers)
	protected.GET("/users/:id", userHandler.GetUserByID)
	protected.GET("/users/username/:username", userHandler.GetUserByUsername)
	protected.GET("/users/:id/posts", postHandler.GetUserPosts)
	protected.PUT("/users/:id/follow", followHandler.ToggleFollow)
	protected.GET("/users/:id/followers", followHandler.GetFollowers)
	protected.GET("/users/:id/following", followHandler.GetFollowing)

	protected.GET("/feed", feedHandler.GetFeed)
	protected.POST("/posts", postHandler.CreatePost)
	protected.GET("/posts/search", postHandler.SearchPosts)
	protected.GET("/posts/saved", postHandler.GetSavedPosts)
	protected.GET("/posts/:id", postHandler.GetPost)
	protected.PUT("/posts/:id", postHandler.UpdatePost)
	protected.DELETE("/posts/:id", postHandler.DeletePost)
	protected.PUT("/posts/:id/reactions", reactionHandler.SetPostReaction)
	protected.PUT("/posts/:id/save", savedHandler.ToggleSave)
	protected.PUT("/posts/:id/join", ideaHandler.JoinIdea)
	protected.DELETE("/posts/:id/join", ideaHandler.LeaveIdea)
	protected.GET("/posts/:id/participants", ideaHandler.GetParticipants)

	protected.POST("/posts/:post_id/comments", commentHandler.CreateComment)
	protected.GET("/posts/:post_id/comments", commentHandler.ListComments)
	protected.PUT("/comments/:id", commentHandler.UpdateComment)
	protected.DELETE("/comments/:id", commentHandler.DeleteComment)
	protected.PUT("/comments/:id/reactions", reactionHandler.SetCommentReaction)

	protected.POST("/conversations", convHandler.CreateConversation)
	protected.GET("/conversations", convHandler.ListConversations)
	protected.GET("/conversations/unread-count", convHandler.GetUnreadCount)
	protected.GET("/conversations/:id/messages", convHandler.GetMessages)
	protected.POST("/conversations/:id/messages", convHandler.SendMessage)
	protected.PUT("/conversations/:id/read", convHandler.MarkRead)
	protected.PUT("/conversations/:id/mute", convHandler.SetMuted)
	protected.PUT("/messages/:id", convHandler.EditMessage)
	protected.DELETE("/messages/:id", convHandler.DeleteMessage)

	protected.GET("/notifications", notifHandler.GetNotifications)
	protected.GET("/notifications/unread-count", notifHandler.GetUnreadCount)
	protected.PUT("/notifications/:id/read", notifHandler.MarkAsRead)
	protected.PUT("/notifications/read-all", notifHandler.MarkAllAsRead)
	protected.GET("/notifications/stream", notifHandler.Stream)

	protected.POST("/uploads", uploadHandler.Upload)

	return e, nil
}
