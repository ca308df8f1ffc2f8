// Package server exposes the SMS pipeline over HTTP so a phone forwarder
// can push bank notifications as they arrive.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/ingest"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// MaxBatchSize bounds the messages accepted by one batch request.
const MaxBatchSize = 500

const shutdownTimeout = 5 * time.Second

// Pipeline is the part of ingest.SMSPipeline the server drives.
type Pipeline interface {
	Handle(ctx context.Context, msg ingest.Message) (ingest.Result, error)
	HandleBatch(ctx context.Context, msgs []ingest.Message) []ingest.Result
}

// Server is the fiber application around a pipeline.
type Server struct {
	app      *fiber.App
	pipeline Pipeline
	logger   *slog.Logger
	cert     *tls.Certificate
}

// Option configures a Server.
type Option func(*options)

type options struct {
	accessLog io.Writer
	logger    *slog.Logger
	cert      *tls.Certificate
}

// WithLogger sets the application logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithAccessLog sets where request lines are written. Defaults to stderr.
func WithAccessLog(w io.Writer) Option {
	return func(o *options) { o.accessLog = w }
}

// WithTLS serves HTTPS with cert.
func WithTLS(cert tls.Certificate) Option {
	return func(o *options) { o.cert = &cert }
}

// New builds the application and registers the routes.
func New(pipeline Pipeline, opts ...Option) *Server {
	o := options{accessLog: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		pipeline: pipeline,
		logger:   common.LoggerOrDefault(o.logger),
		cert:     o.cert,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "spendwise",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{Output: o.accessLog}))

	api := s.app.Group("/api/v1")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	api.Post("/sms", s.ingestOne)
	api.Post("/sms/batch", s.ingestBatch)

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if s.cert != nil {
			errCh <- s.app.ListenTLSWithCertificate(addr, *s.cert)
			return
		}
		errCh <- s.app.Listen(addr)
	}()
	s.logger.Info("Listening for sms", "addr", addr, "tls", s.cert != nil)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}

type messageRequest struct {
	DeliveredAt time.Time `json:"delivered_at"`
	Sender      string    `json:"sender"`
	Body        string    `json:"body"`
}

func (r messageRequest) validate() error {
	if strings.TrimSpace(r.Sender) == "" {
		return errors.New("sender is required")
	}
	if strings.TrimSpace(r.Body) == "" {
		return errors.New("body is required")
	}
	return nil
}

func (r messageRequest) message() ingest.Message {
	return ingest.Message{DeliveredAt: r.DeliveredAt, Sender: r.Sender, Body: r.Body}
}

type batchRequest struct {
	Messages []messageRequest `json:"messages"`
}

type messageResponse struct {
	ingest.Result
	Error string `json:"error,omitempty"`
}

type batchResponse struct {
	Results []messageResponse `json:"results"`
	Stored  int               `json:"stored"`
}

func toResponse(r ingest.Result) messageResponse {
	resp := messageResponse{Result: r}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}

func (s *Server) ingestOne(c *fiber.Ctx) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	result, err := s.pipeline.Handle(c.UserContext(), req.message())
	if err != nil {
		s.logger.Error("Failed to ingest sms", "sender", req.Sender, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(toResponse(result))
	}

	status := fiber.StatusOK
	if result.Outcome == ingest.OutcomeStored {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(toResponse(result))
}

func (s *Server) ingestBatch(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Messages) > MaxBatchSize {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("batch holds %d messages, limit is %d", len(req.Messages), MaxBatchSize))
	}

	msgs := make([]ingest.Message, 0, len(req.Messages))
	for i, m := range req.Messages {
		if err := m.validate(); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("message %d: %v", i, err))
		}
		msgs = append(msgs, m.message())
	}

	results := s.pipeline.HandleBatch(c.UserContext(), msgs)
	resp := batchResponse{Results: make([]messageResponse, 0, len(results))}
	for _, r := range results {
		if r.Outcome == ingest.OutcomeStored {
			resp.Stored++
		}
		resp.Results = append(resp.Results, toResponse(r))
	}
	return c.JSON(resp)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("Request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
