// Package api exposes audits over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/biasbench/biasbench/internal/adapter"
	"github.com/biasbench/biasbench/internal/audit"
	"github.com/biasbench/biasbench/internal/model"
)

const shutdownTimeout = 10 * time.Second

// AuditService is the part of audit.Service the API needs.
type AuditService interface {
	RunAudit(ctx context.Context, prompt string, models []model.ModelKey) (audit.Outcome, error)
	History(ctx context.Context) ([]model.AuditRecord, error)
	DefaultModels() []model.ModelKey
}

// Config configures the HTTP server.
type Config struct {
	Addr        string
	CORSOrigins []string
	Models      []adapter.Spec // catalog served by GET /api/models
}

// Server serves the audit API.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger
}

// NewServer builds the fiber app and registers routes.
func NewServer(cfg Config, svc AuditService, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "biasbench",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	origins := "*"
	if len(cfg.CORSOrigins) > 0 {
		origins = strings.Join(cfg.CORSOrigins, ",")
	}

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(requestLogger(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	h := &Handler{svc: svc, models: cfg.Models, logger: logger}
	app.Get("/healthz", h.Health)
	api := app.Group("/api")
	api.Post("/audit", h.RunAudit)
	api.Get("/history", h.History)
	api.Get("/models", h.Models)

	return &Server{app: app, addr: cfg.Addr, logger: logger}
}

// Start listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// requestLogger logs one line per request with the request ID set by the
// requestid middleware.
func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		logger.Info("http request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return err
	}
}

// errorHandler renders every error as {"detail": "..."}.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(errorBody{Detail: err.Error()})
	}
}
