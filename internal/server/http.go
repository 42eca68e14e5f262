package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	accesssvc "github.com/sealvault/sealvault-backend/internal/access/service"
	"github.com/sealvault/sealvault-backend/internal/auth/middleware"
	"github.com/sealvault/sealvault-backend/internal/conf"
	ledgersvc "github.com/sealvault/sealvault-backend/internal/ledger/service"
	"github.com/sealvault/sealvault-backend/internal/pkg/database"
	"github.com/sealvault/sealvault-backend/internal/pkg/logger"
	transfersvc "github.com/sealvault/sealvault-backend/internal/transfer/service"
	uploadsvc "github.com/sealvault/sealvault-backend/internal/upload/service"
	"go.uber.org/zap"
)

// Services bundles everything the HTTP surface mounts.
type Services struct {
	Transfer *transfersvc.TransferService
	Access   *accesssvc.AccessService
	Ledger   *ledgersvc.LedgerService
	Upload   *uploadsvc.UploadService
}

type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	db *database.DB,
	redisClient *redis.Client,
	svcs Services,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLogger(log))

	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if err := db.HealthCheck(c.Request.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api/v1")
	if config.RateLimit.Enabled {
		api.Use(middleware.RateLimiter(redisClient, middleware.RateLimiterConfig{
			MaxRequests:   config.RateLimit.MaxRequests,
			WindowSeconds: config.RateLimit.WindowSeconds,
			Strategy:      config.RateLimit.Strategy,
		}, log))
	}

	// Protocol stats is a public view; it is rate limited but needs no token.
	svcs.Ledger.RegisterPublicRoutes(api)

	authed := api.Group("")
	authed.Use(middleware.JWTAuth(config.Auth.JWTSecret, config.Auth.JWTIssuer, log))

	svcs.Transfer.RegisterRoutes(authed)
	svcs.Access.RegisterRoutes(authed)
	svcs.Ledger.RegisterRoutes(authed)
	svcs.Upload.RegisterRoutes(authed)

	// Admin endpoints share the JWT layer; the admin identity itself is
	// enforced against the ledger row inside the use cases.
	admin := authed.Group("/admin")
	svcs.Ledger.RegisterAdminRoutes(admin)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)

	return &HTTPServer{
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		logger: log,
	}
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}
