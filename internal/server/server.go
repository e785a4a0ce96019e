package server

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/umoja-bank/umoja/internal/config"
	"github.com/umoja-bank/umoja/internal/routes"
)

// Server wraps the Fiber application lifecycle.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New builds the HTTP server with all routes and middleware wired.
func New(d routes.Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:               d.Cfg.AppName,
		DisableStartupMessage: d.Cfg.AppEnv == "production",
	})

	routes.Setup(app, d)

	return &Server{app: app, cfg: d.Cfg}
}

// Listen starts accepting connections and blocks until shutdown.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
