// Package server contains the HTTP handlers and middleware wiring for the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"postboard/internal/auth"
	"postboard/internal/cache"
	"postboard/internal/config"
	"postboard/internal/database"
	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/notifications"
	"postboard/internal/repository"
	"postboard/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
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
	sessions       *auth.Sessions
	notifier       *notifications.Notifier
	authService    *service.AuthService
	postService    *service.PostService
	commentService *service.CommentService
	likeService    *service.LikeService
}

// NewServer connects to the database and Redis and builds a Server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient, err := cache.InitRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	sessions, err := NewSessions(cfg)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	return NewServerWithDeps(cfg, db, redisClient, sessions)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, sessions *auth.Sessions) (*Server, error) {
	if db == nil {
		return nil, errors.New("server requires a database")
	}
	if sessions == nil {
		return nil, errors.New("server requires a session issuer")
	}

	store := cache.NewStore(redisClient)
	notifier := notifications.NewNotifier(redisClient)

	userRepo := repository.NewUserRepository(db)
	credentials, err := auth.NewCredentialStore(userRepo, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("postboard-api"),
		sessions:       sessions,
		notifier:       notifier,
	}
	s.authService = service.NewAuthService(credentials, sessions)
	s.postService = service.NewPostService(repository.NewPostRepository(db, store), notifier)
	s.commentService = service.NewCommentService(repository.NewCommentRepository(db, store), notifier)
	s.likeService = service.NewLikeService(repository.NewLikeRepository(db, store), notifier)
	return s, nil
}

// NewSessions builds the session issuer from cfg. Outside production an
// empty JWT_SECRET is replaced with a random key that lives as long as the
// process, so tokens do not survive a restart.
func NewSessions(cfg *config.Config) (*auth.Sessions, error) {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		generated, err := auth.GenerateSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
		middleware.Logger.Warn("JWT_SECRET not set, using a random per-process signing key")
	}
	return auth.NewSessions(auth.SessionConfig{Secret: secret, TTL: cfg.SessionTTL})
}

// App returns the Fiber app with middleware and routes installed, building
// it on first use.
func (s *Server) App() *fiber.App {
	if s.app == nil {
		app := fiber.New(fiber.Config{
			AppName:      "Postboard API",
			ErrorHandler: s.ErrorHandler,
		})
		s.SetupMiddleware(app)
		s.SetupRoutes(app)
		s.app = app
	}
	return s.app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panics become errors and reach ErrorHandler
	app.Use(recover.New())

	app.Use(requestid.New())

	// Tracing runs before ContextMiddleware so the trace ID reaches the logger
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/healthz", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	v1 := app.Group("/v1")
	v1.Post("/signup", s.Signup)
	v1.Post("/signin", s.Signin)

	posts := v1.Group("/posts", s.AuthRequired())
	posts.Get("/", s.protected(s.ListPosts))
	posts.Post("/", s.protected(s.CreatePost))
	posts.Get("/:id", s.protected(s.GetPost))
	posts.Delete("/:id", s.protected(s.DeletePost))

	likes := v1.Group("/likes", s.AuthRequired())
	likes.Post("/new", s.protected(s.CreateLike))
	likes.Get("/:postId", s.protected(s.ListLikes))

	comments := v1.Group("/comments", s.AuthRequired())
	comments.Post("/new", s.protected(s.CreateComment))
	comments.Get("/:postId", s.protected(s.ListComments))
	comments.Delete("/:id", s.protected(s.DeleteComment))
}

// ErrorHandler is the single place handler errors become HTTP responses.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional; when it
// is not configured it is reported as disabled and does not fail the check.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
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

// AuthRequired verifies the bearer token and stores the caller's principal
// in the request context. Requests without a valid session stop here.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := s.sessions.Verify(bearerToken(c.Get(fiber.HeaderAuthorization)))
		if err != nil {
			return err
		}

		ctx := auth.WithPrincipal(c.UserContext(), principal)
		ctx = middleware.WithUserID(ctx, principal.UserID)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// protectedHandler is a handler that runs only for authenticated callers.
type protectedHandler func(c *fiber.Ctx, p auth.Principal) error

// protected adapts h to Fiber. It must be mounted behind AuthRequired.
func (s *Server) protected(h protectedHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := auth.PrincipalFrom(c.UserContext())
		if !ok {
			return models.NewInternalError(fmt.Errorf("no principal for %s %s", c.Method(), c.Path()))
		}
		return h(c, p)
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WatchEvents logs and counts activity events until ctx is done. It is a
// no-op when Redis is not configured.
func (s *Server) WatchEvents(ctx context.Context) error {
	return s.notifier.Subscribe(ctx, s.observeEvent)
}

func (s *Server) observeEvent(evt notifications.Event) {
	middleware.EventsObserved.WithLabelValues(evt.Type).Inc()
	middleware.Logger.Info("event observed",
		slog.String("event", evt.Type),
		slog.Int("payload_bytes", len(evt.Payload)),
	)
}

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}

	if err := database.Close(s.db); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}
