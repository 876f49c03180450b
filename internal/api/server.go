// Package api serves the ledger over HTTP with fiber.
package api

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Veraticus/bloomfi/internal/auth"
	"github.com/Veraticus/bloomfi/internal/engine"
)

// Options configures the HTTP server.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// CSRFTTL is the CSRF cookie's max age.
	CSRFTTL          time.Duration
	CSRFCookieSecure bool
}

// Server wires HTTP routes to the ledger engine.
type Server struct {
	app      *fiber.App
	engine   *engine.Engine
	verifier *auth.Verifier
	opts     Options
}

// NewServer builds the fiber app and registers every route.
func NewServer(eng *engine.Engine, verifier *auth.Verifier, opts Options) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "bloomfi",
		ErrorHandler:          errorHandler,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		DisableStartupMessage: true,
	})

	s := &Server{
		app:      app,
		engine:   eng,
		verifier: verifier,
		opts:     opts,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(requestLogger())

	s.app.Get("/health", s.handleHealth)

	authed := s.app.Group("", requireUser(s.verifier))
	authed.Get("/csrf", s.handleCSRF)
	authed.Get("/dashboard", s.handleDashboard)
	authed.Get("/accounts", s.handleListAccounts)
	authed.Get("/accounts/:id", s.handleGetAccount)
	authed.Get("/transactions", s.handleListTransactions)
	authed.Get("/transactions/:id", s.handleGetTransaction)
	authed.Post("/transfer", requireCSRF(), s.handleTransfer)
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// ListenTLS serves HTTPS on addr with cert until Shutdown is called.
func (s *Server) ListenTLS(addr string, cert tls.Certificate) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.app.Listener(tls.NewListener(ln, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}))
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
