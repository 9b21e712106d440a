// Package httpserver exposes the NoteCloud services over HTTP. It maps the
// domain sentinel errors to status codes and keeps everything else a generic
// 500 so infrastructure details never leak to clients.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/notecloud/backend/internal/logging"
	"github.com/notecloud/backend/internal/server/auth"
	"github.com/notecloud/backend/internal/server/services"
)

type HTTPServer struct {
	address string
	logger  logging.Logger
	auth    *services.AuthService
	notes   *services.NoteService
	tokens  *auth.Manager
}

func NewHTTPServer(a string, l logging.Logger, as *services.AuthService, ns *services.NoteService, tm *auth.Manager) *HTTPServer {
	return &HTTPServer{
		address: a,
		logger:  l.With("module", "http_server"),
		auth:    as,
		notes:   ns,
		tokens:  tm,
	}
}

// Router builds the gin engine with all routes attached. Exposed separately
// from Run so handler tests can drive it through httptest.
func (s *HTTPServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/refresh", s.handleRefresh)

	noteGroup := api.Group("/notes", s.accessTokenMiddleware())
	noteGroup.GET("", s.handleListNotes)
	noteGroup.POST("", s.handleSaveNote)
	noteGroup.DELETE("/:id", s.handleDeleteNote)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
