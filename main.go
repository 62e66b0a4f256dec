package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cppla/chirp/config"
	"github.com/cppla/chirp/identity"
	"github.com/cppla/chirp/metrics"
	"github.com/cppla/chirp/middleware"
	"github.com/cppla/chirp/models"
	"github.com/cppla/chirp/ratelimit"
	"github.com/cppla/chirp/repository"
	"github.com/cppla/chirp/routes"
	"github.com/cppla/chirp/services"
	"github.com/cppla/chirp/utils"
	"github.com/cppla/chirp/web"
)

const clerkTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger early
	logger, err := utils.InitLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := config.InitDatabase(cfg, zap.NewStdLog(logger), &models.Post{})
	if err != nil {
		utils.Sugar.Fatalf("database init failed: %v", err)
	}

	ctx := context.Background()
	rdb, err := utils.NewRedis(ctx, cfg)
	if err != nil {
		utils.Sugar.Fatalf("redis init failed: %v", err)
	}
	defer func() { _ = rdb.Close() }()

	clerk := identity.NewClerkClient(cfg.ClerkAPIURL, cfg.ClerkSecretKey, clerkTimeout)
	verifier := newSessionVerifier(ctx, cfg, clerk, logger)

	limiter := ratelimit.NewSlidingWindow(rdb, cfg.PostRateLimit, cfg.PostRateWindow)
	postService := services.NewPostService(repository.NewPostRepository(db), limiter, clerk, logger.Named("posts"))

	templates, err := web.NewTemplates(nil)
	if err != nil {
		utils.Sugar.Fatalf("templates: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)

	// Access logs go to their own rolling file when configured
	accessLogger := logger
	if cfg.GinPath != "" {
		gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err != nil {
			logger.Warn("gin access logger unavailable, using application logger", zap.Error(err))
		} else {
			accessLogger = gl
		}
	}

	r := routes.SetupRouter(routes.Dependencies{
		Config:       cfg,
		Posts:        postService,
		Pages:        postService,
		Templates:    templates,
		Verifier:     verifier,
		Gatherer:     reg,
		AccessLogger: accessLogger,
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

// newSessionVerifier loads the instance JWKS. An explicit JWKS URL is public and fetched
// anonymously; otherwise the Backend API endpoint is read with the secret key.
// Without keys sessions are ignored, unless writes require them.
func newSessionVerifier(ctx context.Context, cfg config.AppConfig, clerk *identity.ClerkClient, logger *zap.Logger) middleware.TokenVerifier {
	jwksURL, hc := cfg.ClerkJWKSURL, &http.Client{Timeout: clerkTimeout}
	if jwksURL == "" {
		jwksURL, hc = clerk.JWKSURL(), clerk.HTTPClient()
	}

	v, err := identity.NewSessionVerifier(ctx, jwksURL, cfg.ClerkIssuer, hc)
	if err != nil {
		if cfg.AuthRequiredForWrites {
			logger.Fatal("session keys unavailable", zap.String("jwks_url", jwksURL), zap.Error(err))
		}
		logger.Warn("session keys unavailable, session auth disabled", zap.String("jwks_url", jwksURL), zap.Error(err))
		return nil
	}
	return v
}
