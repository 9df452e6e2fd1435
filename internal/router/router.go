// Package router assembles the gin engine.
package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"titanhub/internal/handlers"
	"titanhub/internal/metrics"
	"titanhub/internal/middleware"
	"titanhub/internal/services"
)

// Deps is everything the routes need. Redis and Metrics may be nil.
type Deps struct {
	Auth    *services.AuthService
	Content *services.ContentService
	Stats   *services.StatsService
	Health  handlers.Pinger
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Redis   *redis.Client

	Cookie    middleware.CookieOptions
	RateLimit *middleware.RateLimitOptions // nil disables the limiter
}

// New builds an engine with the middleware chain and every route.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	authHandler := handlers.NewAuthHandler(d.Auth, d.Logger)
	userHandler := handlers.NewUserHandler(d.Auth, d.Logger)
	projectHandler := handlers.NewProjectHandler(d.Content, d.Logger)
	discussionHandler := handlers.NewDiscussionHandler(d.Content, d.Logger)
	voteHandler := handlers.NewVoteHandler(d.Content, d.Logger)
	adminHandler := handlers.NewAdminHandler(d.Content, d.Logger)
	statsHandler := handlers.NewStatsHandler(d.Stats, d.Logger)

	r.GET("/healthz", handlers.Health(d.Health, d.Logger)) // 健康检查
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	limit := func(c *gin.Context) { c.Next() }
	if d.RateLimit != nil {
		limit = middleware.RateLimit(d.Redis, *d.RateLimit, d.Logger)
	}

	api := r.Group("/api")
	api.Use(middleware.Sessions(d.Cookie))
	api.Use(middleware.LoadUser(d.Auth))

	// 公共路由 (Public Routes)
	api.POST("/register", authHandler.Register) // 注册
	api.POST("/login", authHandler.Login)       // 登录
	api.POST("/logout", authHandler.Logout)     // 退出登录
	api.GET("/user/:id", userHandler.Profile)   // 用户主页
	api.GET("/users", userHandler.List)
	api.GET("/stats", statsHandler.Get)

	api.GET("/projects", projectHandler.List)
	api.GET("/projects/top", projectHandler.Top)
	api.GET("/projects/:id", projectHandler.Get)
	api.POST("/projects/:id/upvote", limit, voteHandler.UpvoteProject)

	api.GET("/discussions", discussionHandler.List)
	api.GET("/discussions/top", discussionHandler.Top)
	api.GET("/discussions/:id", discussionHandler.Get)
	api.POST("/discussions/:id/upvote", limit, voteHandler.UpvoteDiscussion)
	api.GET("/discussions/:id/comments", discussionHandler.ListComments)

	// 受保护路由 (Protected Routes)
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/user", authHandler.Me)                      // 当前用户
		authorized.PATCH("/user/profile", userHandler.UpdateProfile) // 修改资料
		authorized.POST("/projects", projectHandler.Create)
		authorized.POST("/discussions", discussionHandler.Create)
		authorized.POST("/discussions/:id/comments", discussionHandler.AddComment) // 发表评论
	}

	// 管理路由 (Admin Routes)
	admin := api.Group("")
	admin.Use(middleware.AdminRequired())
	{
		admin.PATCH("/discussions/:id/status", adminHandler.SetDiscussionStatus)
	}
}
