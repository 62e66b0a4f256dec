package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cppla/chirp/config"
	"github.com/cppla/chirp/controllers"
	"github.com/cppla/chirp/middleware"
	"github.com/cppla/chirp/utils"
	"github.com/cppla/chirp/web"
)

// Dependencies are the long-lived handles the router hands to controllers.
type Dependencies struct {
	Config    config.AppConfig
	Posts     controllers.PostService
	Pages     web.PostReader
	Templates *web.Templates
	Verifier  middleware.TokenVerifier
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// AccessLogger receives gin access logs; nil falls back to utils.Logger.
	AccessLogger *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	gl := deps.AccessLogger
	if gl == nil {
		gl = utils.Logger
	}

	r := gin.New()
	r.Use(middleware.Ginzap(gl, time.RFC3339, true))
	r.Use(middleware.RecoveryWithZap(gl, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	pages := web.NewHandler(deps.Pages, deps.Templates, utils.Logger)
	r.GET("/", pages.Feed)
	r.GET("/post/:id", pages.Post)

	postController := controllers.NewPostController(deps.Posts)
	throttle := middleware.NewIPThrottle(cfg.RateLimitPerMinute)

	api := r.Group("/api/v1")
	api.Use(throttle.Middleware(), middleware.SessionAuth(deps.Verifier))

	postsGroup := api.Group("/posts")
	postsGroup.GET("", postController.ListPosts)
	postsGroup.GET("/latest", postController.GetLatestPost)
	postsGroup.GET("/:id", postController.GetPost)
	if cfg.AuthRequiredForWrites {
		postsGroup.POST("", middleware.SessionRequired(), postController.CreatePost)
	} else {
		postsGroup.POST("", postController.CreatePost)
	}

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		pages.NotFound(ctx)
	})

	return r
}
