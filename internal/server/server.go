package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/admin"
	"github.com/ong-aas/claims-portal/internal/claims"
	"github.com/ong-aas/claims-portal/internal/config"
	"github.com/ong-aas/claims-portal/internal/content"
	"github.com/ong-aas/claims-portal/internal/http/handlers"
	"github.com/ong-aas/claims-portal/internal/identity"
	"github.com/ong-aas/claims-portal/internal/middleware"
	"github.com/ong-aas/claims-portal/internal/session"
	"github.com/ong-aas/claims-portal/internal/storage"
	"github.com/ong-aas/claims-portal/internal/upload"
)

// Deps are the long-lived collaborators owned by main.
type Deps struct {
	Store    storage.Store
	DB       storage.Pinger
	Sessions *session.Store
	Objects  upload.ObjectStore
	Identity *identity.Client
	Content  *content.Loader
	Logger   *zap.Logger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up services, middleware and routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	claimSvc := claims.NewService(deps.Store, logger.Named("claims"))
	adminSvc := admin.NewService(deps.Store, claimSvc, deps.Sessions, logger.Named("admin"))
	workflow := upload.NewWorkflow(deps.Objects, logger.Named("upload"))

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now(), deps.DB).Register(mux)
	handlers.NewAuthHandler(deps.Store, deps.Sessions, logger).Register(mux)
	handlers.NewUploadHandler(workflow, upload.Profiles(cfg.UploadMaxBytes), deps.Sessions, logger).Register(mux)
	handlers.NewClaimHandler(claimSvc, deps.Sessions, logger).Register(mux)
	handlers.NewFeedHandler(deps.Content, deps.Store, claimSvc, deps.Sessions, logger).Register(mux)
	handlers.NewIdentityHandler(deps.Identity, logger.Named("identity")).Register(mux)
	handlers.NewAdminHandler(adminSvc, deps.Sessions, logger).Register(mux)

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(logger.Named("http"), mux))

	// Uploads of large evidence need a long write window.
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
