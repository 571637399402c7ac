package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/cryptox"
	"github.com/Abraxas-365/gatekeep/pkg/errx"
	"github.com/Abraxas-365/gatekeep/pkg/iam/auth"
	"github.com/Abraxas-365/gatekeep/pkg/logx"
)

func main() {
	// 1. Configuration (LOG_* is read by logx itself)
	cfg, err := config.Load()
	if err != nil {
		logx.WithError(err).Fatal("Invalid configuration")
	}

	logx.Info("Starting gatekeep...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Dependency container
	container := NewContainer(ctx, cfg)
	defer container.Cleanup()

	// 3. Fiber app and routes
	app := newApp(container)

	// 4. Background services
	reconDone := container.StartBackgroundServices(ctx)

	// 5. Serve until signalled
	serveErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logx.Infof("Server listening on %s", addr)
		serveErr <- app.Listen(addr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logx.Errorf("Server error: %v", err)
		}
		stop()
	case <-ctx.Done():
		logx.Info("Shutting down gracefully...")
	}

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}
	<-reconDone
	logx.Info("Server exited")
}

func newApp(container *Container) *fiber.App {
	cfg := container.Config
	app := fiber.New(fiber.Config{
		AppName:               "gatekeep",
		DisableStartupMessage: true,
		ErrorHandler:          errx.FiberHandler,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: cryptox.NewCompactID,
	}))
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${reqHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Get("/health", healthCheckHandler(container))
	app.Get("/v1/whoami", container.IAM.AuthMiddleware.RequireToken(), whoamiHandler)
	app.Use(notFoundHandler)
	return app
}

func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status": "healthy",
			"store":  container.Config.Store.Mode,
		}

		if err := container.Ping(c.UserContext()); err != nil {
			health["status"] = "degraded"
			health["store_error"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(health)
		}
		return c.JSON(health)
	}
}

func whoamiHandler(c *fiber.Ctx) error {
	ac, ok := auth.FromCtx(c)
	if !ok {
		return auth.ErrUnauthorized()
	}
	return c.JSON(ac)
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"code":    "NOT_FOUND",
		"message": "The requested endpoint does not exist",
		"path":    c.Path(),
		"method":  c.Method(),
	})
}
