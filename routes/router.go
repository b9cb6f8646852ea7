package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aedi/aedi/config"
	"github.com/aedi/aedi/controllers"
	"github.com/aedi/aedi/metrics"
	"github.com/aedi/aedi/middleware"
	"github.com/aedi/aedi/models"
	"github.com/aedi/aedi/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// access log and panic recovery go to their own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		r.Use(utils.RecoveryWithZap(utils.Logger, true))
	}
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		// credentialed requests cannot use a literal "*"
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authController := controllers.NewAuthController(db)
	userController := controllers.NewUserController(db)
	postController := controllers.NewPostController(db)
	notificationController := controllers.NewNotificationController(db)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api")
	api.GET("/stats", statsController.GetStats)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	authGroup.POST("/signup", authController.Signup)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))

	users := protected.Group("/users")
	users.GET("/profile/:username", userController.Profile)
	users.GET("/suggested", userController.Suggested)
	users.POST("/follow/:id", userController.Follow)
	users.POST("/update", userController.Update)
	users.GET("/search", userController.Search)
	users.DELETE("/delete/:id", userController.Delete)

	posts := protected.Group("/posts")
	posts.GET("/all", postController.AllPosts)
	posts.GET("/following", postController.FollowingPosts)
	posts.GET("/user/:username", postController.UserPosts)
	posts.GET("/adaptEdits/:id", postController.GetAdaptation(models.KindEdit))
	posts.GET("/adaptNexts/:id", postController.GetAdaptation(models.KindNext))
	posts.GET("/:id", postController.GetPost)
	posts.POST("/create", postController.CreatePost)
	posts.POST("/like/:id", postController.LikePost)
	posts.POST("/adaptEdit/:id", postController.AppendAdaptation(models.KindEdit))
	posts.POST("/adaptNext/:id", postController.AppendAdaptation(models.KindNext))
	posts.POST("/adaptEdit/like/:id", postController.LikeAdaptation(models.KindEdit))
	posts.POST("/adaptNext/like/:id", postController.LikeAdaptation(models.KindNext))
	posts.DELETE("/:id", postController.DeletePost)
	posts.DELETE("/deleteAe/:id", postController.RemoveAdaptation(models.KindEdit))
	posts.DELETE("/deleteAn/:id", postController.RemoveAdaptation(models.KindNext))

	notifications := protected.Group("/notifications")
	notifications.GET("", notificationController.List)
	notifications.GET("/unread-count", notificationController.UnreadCount)
	notifications.POST("/mark-read", notificationController.MarkAllRead)
	notifications.DELETE("", notificationController.DeleteAll)
	notifications.DELETE("/:id", notificationController.Delete)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
