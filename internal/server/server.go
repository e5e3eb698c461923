// Package server contains the HTTP and WebSocket handlers for the
// application's API endpoints and wires the state machines to a gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/gateway"
	"inkwell/internal/gateway/local"
	"inkwell/internal/gateway/supabase"
	"inkwell/internal/middleware"
	"inkwell/internal/notifications"
	"inkwell/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config   *config.Config
	gw       gateway.Gateway
	localGW  *local.Gateway
	sessions *store.SessionStore
	blogs    *store.BlogStore
	comments *store.CommentStore
	hub      *notifications.Hub
	log      *slog.Logger

	shutdownCtx context.Context
	shutdownFn  context.CancelFunc
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	log := middleware.Logger

	var gw gateway.Gateway
	var localGW *local.Gateway
	switch cfg.Gateway {
	case config.GatewaySupabase:
		gw = supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, log)
	default:
		lg, err := local.Open(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("local gateway: %w", err)
		}
		gw = lg
		localGW = lg
	}

	// Initialize Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)

	uploader := store.NewUploader(gw, log)
	sessions := store.NewSessionStore(gw, log)
	blogs := store.NewBlogStore(gw, uploader, log)
	comments := store.NewCommentStore(gw, uploader, log)

	ctx, cancel := context.WithCancel(context.Background())
	sessions.Watch(ctx)
	sessions.Restore(ctx)

	return &Server{
		config:      cfg,
		gw:          gw,
		localGW:     localGW,
		sessions:    sessions,
		blogs:       blogs,
		comments:    comments,
		hub:         notifications.NewHub(),
		log:         log,
		shutdownCtx: ctx,
		shutdownFn:  cancel,
	}, nil
}

// SetupMiddleware attaches the shared middleware stack.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.AllowedOrigins,
	}))
	app.Use(middleware.StructuredLogger())
}

// SetupRoutes registers every route of the API surface.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "inkwell up",
			"version": "1.0.0",
		})
	})

	authRequired := middleware.RequireSession(s.sessions)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", s.Signup)
	auth.Post("/login", s.Login)
	auth.Post("/logout", s.Logout)
	auth.Get("/session", s.GetSession)

	// Blog routes
	blogs := api.Group("/blogs")
	blogs.Get("/", s.ListBlogs)
	blogs.Get("/:id", s.GetBlog)
	blogs.Get("/:id/comments", s.GetComments)
	// Protected blog routes
	blogs.Post("/", authRequired, s.CreateBlog)
	blogs.Put("/:id", authRequired, s.UpdateBlog)
	blogs.Delete("/:id", authRequired, s.DeleteBlog)
	blogs.Post("/:id/comments", authRequired, s.CreateComment)

	// Comment routes (protected)
	comments := api.Group("/comments", authRequired)
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	s.setupWebsocket(app)

	// Locally stored objects are served straight from disk.
	if s.localGW != nil {
		app.Static("/media", s.localGW.MediaDir())
	}
}

// Sessions exposes the session store, mainly for middleware and tests.
func (s *Server) Sessions() *store.SessionStore { return s.sessions }

// Shutdown releases server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()
	if client := cache.GetClient(); client != nil {
		return client.Close()
	}
	return nil
}
