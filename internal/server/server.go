// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"nexus/internal/avatar"
	"nexus/internal/bus"
	"nexus/internal/cache"
	"nexus/internal/config"
	"nexus/internal/database"
	"nexus/internal/featureflags"
	"nexus/internal/middleware"
	"nexus/internal/models"
	"nexus/internal/realtime"
	"nexus/internal/repository"
	"nexus/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	repos     repository.Repos
	uow       repository.UnitOfWork
	perms     *service.PermissionEvaluator
	publisher bus.Publisher
	consumers bus.Subscriber

	registry *realtime.Registry
	router   *realtime.Router
	sweeper  *service.Sweeper
	flags    *featureflags.Manager

	networkService    *service.NetworkService
	membershipService *service.MembershipService
	joinService       *service.JoinService
	invitationService *service.InvitationService
	goalService       *service.GoalService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Initialize Redis
	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	// Initialize Kafka producer and per-topic consumers
	brokers := cfg.KafkaBrokerList()
	publisher := bus.NewProducer(brokers)
	consumers := bus.NewConsumers(brokers)

	return NewServerWithDeps(cfg, db, redisClient, publisher, consumers)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis/Kafka and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, publisher bus.Publisher, consumers bus.Subscriber) (*Server, error) {
	// Initialize repositories over the shared connection
	repos := repository.NewRepos(db)
	uow := repository.NewUnitOfWork(db)
	perms := service.NewPermissionEvaluator(repos.Members)

	// Initialize Prometheus metrics
	prom := middleware.InitMetrics("nexus-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		repos:          repos,
		uow:            uow,
		perms:          perms,
		publisher:      publisher,
		consumers:      consumers,
	}

	server.networkService = service.NewNetworkService(repos, uow, perms, publisher,
		avatar.NewIdenticonGenerator(), cfg.BaseURL)
	server.membershipService = service.NewMembershipService(repos, uow, perms, publisher)
	server.joinService = service.NewJoinService(repos, uow, perms, publisher)
	server.invitationService = service.NewInvitationService(repos, uow, perms, publisher)
	server.goalService = service.NewGoalService(repos, perms, publisher)

	// Connection registry with admin-room checks against committed roles
	server.registry = realtime.NewRegistry(perms.IsAdmin)
	server.registry.SetPresenceCallbacks(
		func(userID uint) { server.publishPresence(userID, true) },
		func(userID uint) { server.publishPresence(userID, false) },
	)
	server.router = realtime.NewRouter(server.registry)

	server.sweeper = service.NewSweeper(cfg.SweepInterval, server.networkService.CleanupExpiredSuspensions)
	server.flags = featureflags.NewManager(cfg.FeatureFlags)

	return server, nil
}

// publishPresence emits a user_status broadcast when a user's first
// connection arrives or last connection leaves. Best effort.
func (s *Server) publishPresence(userID uint, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.publisher.Publish(ctx, bus.TopicUserActivity, bus.Event{
		Type:   bus.EventUserStatus,
		Scope:  bus.ScopeBroadcast,
		UserID: userID,
		Data:   map[string]interface{}{"online": online},
	})
	if err != nil {
		middleware.Logger.Warn("presence publish failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.Bool("online", online),
			slog.String("error", err.Error()),
		)
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.HealthCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Nexus Backend Metrics Dashboard",
	}))

	// Public network routes (browse/search)
	publicNetworks := api.Group("/networks")
	publicNetworks.Get("/", s.SearchNetworks)
	publicNetworks.Get("/:id", s.GetNetwork)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	networks := protected.Group("/networks")
	networks.Post("/", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "create_network"), s.CreateNetwork)

	// Define specific /:id/:resource routes BEFORE generic /:id route
	networks.Get("/:id/share-link", s.GetShareLink)
	networks.Put("/:id/passcode", s.UpdatePasscode)
	networks.Post("/:id/suspend", s.SuspendNetwork)
	networks.Post("/:id/restore", s.RestoreNetwork)
	networks.Post("/:id/resign-admin", s.ResignAdmin)

	// Membership routes
	networks.Get("/:id/members", s.GetMembers)
	// Specific /me route before generic /:userId
	networks.Delete("/:id/members/me", s.LeaveNetwork)
	networks.Get("/:id/members/:userId/goals", s.GetMemberGoals)
	networks.Put("/:id/members/:userId/role", s.AssignRole)
	networks.Post("/:id/members/:userId/promote-admin", s.PromoteToAdmin)
	networks.Delete("/:id/members/:userId", s.RemoveMember)

	// Join routes
	networks.Post("/:id/join", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "join_network"), s.JoinNetwork)
	networks.Post("/:id/join-requests", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "join_request"), s.RequestJoin)
	networks.Get("/:id/join-requests", s.ListPendingRequests)

	// Feature flags evaluated for the current user
	protected.Get("/flags/me", s.GetMyFlags)

	// Invitation routes
	networks.Post("/:id/invitations", s.CreateInvitations)
	protected.Get("/invitations/me", s.GetMyInvitations)

	// Goal routes
	networks.Post("/:id/goals", s.CreateGoal)
	networks.Get("/:id/goals", s.GetGoals)
	// Specific /selection route before generic /:goalId
	networks.Put("/:id/goals/selection", s.SelectGoals)
	networks.Put("/:id/goals/:goalId", s.UpdateGoal)
	networks.Delete("/:id/goals/:goalId", s.DeleteGoal)

	// Join request review (reached from admin notifications, not network-scoped)
	joinRequests := protected.Group("/join-requests")
	joinRequests.Post("/:requestId/approve", s.ApproveJoinRequest)
	joinRequests.Post("/:requestId/reject", s.RejectJoinRequest)

	// Generic /:id routes (for item update) must be last
	networks.Put("/:id", s.EditNetwork)

	// Websocket endpoint - token auth via query param, then upgrade
	api.Get("/ws", middleware.WebSocketAuthRequired, s.WebSocketUpgradeRequired, s.WebSocketHandler())
}

// HealthCheck is a legacy/simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The cache is optional; readiness reports it but does not fail on it.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Network Membership API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	// Fan bus events out to websocket rooms
	if s.consumers != nil {
		if err := s.router.Start(ctx, s.consumers); err != nil {
			cancel()
			return fmt.Errorf("event router start failed: %w", err)
		}
	}

	// Background sweep of expired suspensions
	go s.sweeper.Run(ctx)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop consumers and the sweeper
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	// Shutdown the HTTP/WS server
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Close WebSocket connections gracefully
	if err := s.registry.Shutdown(ctx); err != nil {
		log.Printf("error shutting down connection registry: %v", err)
	}

	// Wait for consume loops to drain
	if consumers, ok := s.consumers.(*bus.Consumers); ok && consumers != nil {
		consumers.Wait()
	}

	// Flush and close the Kafka producer
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Printf("error closing bus producer: %v", err)
		}
	}

	// Close database connection
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
