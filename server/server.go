package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/existflow/ironplan/internal/logger"
	"github.com/existflow/ironplan/internal/model"
	"github.com/existflow/ironplan/server/store"
)

// ProjectStore is the persistence surface the project handlers need
type ProjectStore interface {
	List(ctx context.Context, owner primitive.ObjectID) ([]model.ProjectView, error)
	Get(ctx context.Context, id, owner primitive.ObjectID) (*model.ProjectView, error)
	Create(ctx context.Context, p *model.Project) (*model.ProjectView, error)
	Update(ctx context.Context, id, owner primitive.ObjectID, upd model.ProjectUpdate) (*model.ProjectView, error)
	Delete(ctx context.Context, id, owner primitive.ObjectID) error
}

// UserStore is the persistence surface the auth handlers and team
// resolution need
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmails(ctx context.Context, emails []string) ([]model.User, error)
}

// SessionStore is the persistence surface for login sessions
type SessionStore interface {
	Create(ctx context.Context, sess *model.Session) error
	Get(ctx context.Context, token string) (*model.Session, error)
	Delete(ctx context.Context, token string) error
}

// Server is the ironplan API server
type Server struct {
	store    *store.Store
	projects ProjectStore
	users    UserStore
	sessions SessionStore
	echo     *echo.Echo
}

// New connects to the document store and creates a new server
func New(ctx context.Context, mongoURI, dbName string) (*Server, error) {
	st, err := store.Connect(ctx, mongoURI, dbName)
	if err != nil {
		return nil, err
	}

	s := newServer(st.Projects, st.Users, st.Sessions)
	s.store = st
	return s, nil
}

// newServer wires handlers against store implementations. Tests use it
// directly with in-memory stores.
func newServer(projects ProjectStore, users UserStore, sessions SessionStore) *Server {
	s := &Server{
		projects: projects,
		users:    users,
		sessions: sessions,
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true

	// Request/response logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			res := c.Response()
			logger.Info("HTTP",
				logger.F("method", req.Method),
				logger.F("uri", req.RequestURI),
				logger.F("status", res.Status),
				logger.F("duration", time.Since(start).String()))

			return err
		}
	})

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	// Health check
	e.GET("/health", s.handleHealth)

	api := e.Group("/api")

	// Auth endpoints (public)
	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)

	// Protected endpoints
	protected := api.Group("")
	protected.Use(s.authMiddleware)
	protected.POST("/auth/logout", s.handleLogout)
	protected.GET("/auth/me", s.handleMe)

	protected.GET("/projects", s.listProjects)
	protected.POST("/projects", s.createProject)
	protected.GET("/projects/:id", s.getProject)
	protected.PUT("/projects/:id", s.updateProject)
	protected.PATCH("/projects/:id", s.updateProject)
	protected.DELETE("/projects/:id", s.deleteProject)

	s.echo = e
}

// Close releases the store connection
func (s *Server) Close(ctx context.Context) error {
	if s.store != nil {
		return s.store.Close(ctx)
	}
	return nil
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
