// Package server contains HTTP handlers for the registry API endpoints.
package server

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	_ "mfl/docs" // swagger docs
	"mfl/internal/bootstrap"
	"mfl/internal/config"
	"mfl/internal/featureflags"
	"mfl/internal/middleware"
	"mfl/internal/models"
	"mfl/internal/notifications"
	"mfl/internal/repository"
	"mfl/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/golang-jwt/jwt/v5"
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
	userRepo       repository.UserRepository
	facilityRepo   repository.FacilityRepository
	requestRepo    repository.RequestRepository
	adminUnitRepo  repository.AdminUnitRepository
	historyRepo    repository.HistoryRepository
	webhookRepo    repository.WebhookRepository
	notifier       *notifications.Notifier
	dispatcher     *notifications.WebhookDispatcher
	featureFlags   *featureflags.Manager
	workflow       *service.WorkflowService
	facilities     *service.FacilityService
	diffs          *service.DiffService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedAdminUnits: true})
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	facilityRepo := repository.NewFacilityRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	adminUnitRepo := repository.NewAdminUnitRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	webhookRepo := repository.NewWebhookRepository(db)

	prom := middleware.InitMetrics("mfl-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		userRepo:       userRepo,
		facilityRepo:   facilityRepo,
		requestRepo:    requestRepo,
		adminUnitRepo:  adminUnitRepo,
		historyRepo:    historyRepo,
		webhookRepo:    webhookRepo,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		diffs:          service.NewDiffService(),
	}

	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
	}
	server.dispatcher = notifications.NewWebhookDispatcher(
		webhookRepo, time.Duration(cfg.WebhookTimeoutSeconds)*time.Second)

	server.workflow = service.NewWorkflowService(
		requestRepo, facilityRepo, adminUnitRepo, historyRepo,
		server.featureFlags, server.notifier, server.dispatcher)
	server.facilities = service.NewFacilityService(facilityRepo, adminUnitRepo)

	return server, nil
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
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on error
	// responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
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

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "MFL Backend Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Public registry routes (browse/search)
	facilities := api.Group("/facilities")
	facilities.Get("/", s.GetFacilities)
	facilities.Get("/code/:code", s.GetFacilityByCode)
	facilities.Get("/:id", s.GetFacility)

	// Public administrative hierarchy routes
	api.Get("/regions", s.GetRegions)
	api.Get("/districts", s.GetDistricts)
	api.Get("/districts/:id/subcounties", s.GetSubcounties)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// Request workflow routes
	requests := protected.Group("/requests")
	requests.Post("/", middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "submit_request"), s.SubmitRequest)
	requests.Get("/", s.RoleRequired(models.RoleDistrict, models.RolePlanning, models.RoleAdmin), s.GetRequests)
	requests.Get("/me", s.GetMyRequests)
	requests.Get("/me/history", s.GetMyRequestHistory)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	requests.Get("/:id/history", s.GetRequestHistory)
	requests.Post("/:id/approve", s.RoleRequired(models.RoleDistrict, models.RolePlanning, models.RoleAdmin), s.ApproveRequest)
	requests.Post("/:id/reject", s.RoleRequired(models.RoleDistrict, models.RolePlanning, models.RoleAdmin), s.RejectRequest)
	requests.Get("/:id", s.GetRequest)

	// Admin routes
	admin := protected.Group("/admin", s.RoleRequired(models.RoleAdmin))
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Post("/regions", s.CreateRegion)
	admin.Post("/districts", s.CreateDistrict)
	admin.Post("/subcounties", s.CreateSubcounty)
	webhooks := admin.Group("/webhooks")
	webhooks.Get("/", s.GetWebhooks)
	webhooks.Post("/", s.CreateWebhook)
	webhooks.Put("/:id", s.UpdateWebhook)
	webhooks.Delete("/:id", s.DeleteWebhook)
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

	// Redis is optional; the API degrades to uncached reads without it.
	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Master Facility List API",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// RoleRequired returns middleware that rejects users outside the given roles
// with 403. Must be placed after AuthRequired so that role is available in
// locals.
func (s *Server) RoleRequired(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(models.Role)
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewAuthorizationError("insufficient role for this action"))
	}
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		// Parse and validate token
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			// Validate signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token claims"))
		}

		// Validate issuer and audience
		if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != "mfl-api" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token issuer"))
		}
		if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != "mfl-client" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token audience"))
		}

		// Extract user ID from subject claim
		sub, ok := claims["sub"].(string)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid subject claim"))
		}
		userID, err := strconv.ParseUint(sub, 10, 32)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid user ID in token"))
		}

		role := models.Role("")
		if roleClaim, roleOk := claims["role"].(string); roleOk {
			role = models.Role(roleClaim)
		}
		if !role.Valid() {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid role claim"))
		}

		// District affiliation rides in the token for district officers
		var districtID *uint
		if districtClaim, districtOk := claims["district_id"].(float64); districtOk && districtClaim > 0 {
			id := uint(districtClaim)
			districtID = &id
		}

		c.Locals("userID", uint(userID))
		c.Locals("role", role)
		c.Locals("districtID", districtID)
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, uint(userID))
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Master Facility List API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
