package routes

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Firesolami/needles-sub001/config"
	"github.com/Firesolami/needles-sub001/controllers"
	"github.com/Firesolami/needles-sub001/middleware"
	"github.com/Firesolami/needles-sub001/services"
	"github.com/Firesolami/needles-sub001/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, media *services.MediaService) *gin.Engine {
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
	// Access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		utils.Sugar.Warnf("gin access log disabled: %v", err)
		gl = utils.Named("http")
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(ctx *gin.Context) {
		c, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		checks := gin.H{"database": "ok", "redis": "ok"}
		ready := true
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c) != nil {
			checks["database"] = "unavailable"
			ready = false
		}
		if err := utils.PingRedis(c); err != nil {
			checks["redis"] = "unavailable"
			ready = false
		}
		if !ready {
			utils.Fail(ctx, http.StatusServiceUnavailable, 50300, "not ready", checks)
			return
		}
		utils.Success(ctx, checks)
	})

	controllers.ConfigurePagination(cfg.DefaultPageSize, cfg.MaxPageSize)
	appLog := utils.Named("api")
	authController := controllers.NewAuthController(db, appLog)
	postController := controllers.NewPostController(db, media, appLog)
	userController := controllers.NewUserController(db, appLog)
	mediaController := controllers.NewMediaController(media, cfg.UploadDir, "/"+strings.Trim(filepath.ToSlash(cfg.UploadDir), "/"), cfg.UploadMaxSizeMB, appLog)
	statsController := controllers.NewStatsController(db)

	limit := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)

	api := r.Group("/api/v1")
	api.GET("/stats", statsController.GetStats)

	authGroup := api.Group("/auth")
	authGroup.Use(limit)
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Reads identify the viewer when a token is sent
	public := api.Group("")
	public.Use(middleware.OptionalAuth(), limit)
	public.GET("/posts/:id", postController.GetPost)
	public.GET("/posts/:id/replies", postController.ListReplies)
	public.GET("/posts/:id/quotes", postController.ListQuotes)
	public.GET("/users/:username", userController.GetProfile)
	public.GET("/users/:username/posts", userController.ListPosts)
	public.GET("/users/:username/followers", userController.ListFollowers)
	public.GET("/users/:username/following", userController.ListFollowing)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), limit)
	protected.POST("/posts", postController.CreatePost)
	protected.POST("/posts/:id/publish", postController.PublishDraft)
	protected.POST("/posts/:id/replies", postController.CreateReply)
	protected.POST("/posts/:id/quotes", postController.CreateQuote)
	protected.POST("/posts/:id/reposts", postController.CreateRepost)
	protected.POST("/posts/:id/like", postController.ToggleLike)
	protected.POST("/posts/:id/dislike", postController.ToggleDislike)
	protected.POST("/users/:username/follow", userController.Follow)
	protected.DELETE("/users/:username/follow", userController.Unfollow)
	protected.POST("/media", mediaController.Upload)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
