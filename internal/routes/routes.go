package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/monitor-mbg/monitor_mbg/internal/auth"
	"github.com/monitor-mbg/monitor_mbg/internal/config"
	"github.com/monitor-mbg/monitor_mbg/internal/middleware"
	"github.com/monitor-mbg/monitor_mbg/internal/otp"
	"github.com/monitor-mbg/monitor_mbg/internal/user"
	"github.com/monitor-mbg/monitor_mbg/internal/whatsapp"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	OTPStore otp.Store
	Channel  whatsapp.Channel
	Logger   *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.DB == nil && !d.Cfg.IsDev() {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	// The rate limiter is the outermost wrapper; everything else, including
	// authentication, runs behind it.
	app.Use(middleware.RateLimit(d.Cfg.RateLimitPerSecond))
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	RegisterHealthRoutes(app, d)

	var directory user.Directory
	if d.DB != nil {
		directory = user.NewPostgresDirectory(d.DB)
	} else {
		directory = user.NewMemoryDirectory()
	}

	authSvc, err := auth.NewService(d.Cfg, directory, d.OTPStore, d.Channel, d.Logger)
	if err != nil {
		return err
	}
	authHandler := auth.NewHandler(authSvc)
	guard := middleware.BearerAuth(authSvc.Codec())

	RegisterAuthRoutes(app, authHandler, guard)

	return nil
}
