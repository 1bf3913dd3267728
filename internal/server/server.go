package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/monitor-mbg/monitor_mbg/internal/apperr"
	"github.com/monitor-mbg/monitor_mbg/internal/config"
	"github.com/monitor-mbg/monitor_mbg/internal/otp"
	"github.com/monitor-mbg/monitor_mbg/internal/routes"
	"github.com/monitor-mbg/monitor_mbg/internal/whatsapp"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, store otp.Store, channel whatsapp.Channel, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: apperr.ErrorHandler(logger),
	})

	deps := routes.Deps{Cfg: cfg, DB: db, OTPStore: store, Channel: channel, Logger: logger}
	if err := routes.Setup(app, deps); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
