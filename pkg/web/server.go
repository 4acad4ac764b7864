// Package web exposes the rover over HTTP and websockets: one-shot
// translation, scene analysis, manual moves, autopilot control and a live
// feed of navigation instructions.
package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/dispatch"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/navigation"
	"github.com/teslashibe/go-rover/pkg/pipeline"
)

// TopicNavigation is the hub topic every instruction is published under.
const TopicNavigation = "navigation"

// MaxFrameSize caps JPEG uploads, over HTTP and over /ws/frames.
const MaxFrameSize = 8 * 1024 * 1024

// NavigationEvent is what /ws/navigation subscribers receive.
type NavigationEvent struct {
	Source     string                 `json:"source"` // navigate, analyze or autopilot
	Navigation navigation.Instruction `json:"navigation"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Server is the rover's HTTP and websocket surface.
type Server struct {
	app       *fiber.App
	port      string
	pipeline  *pipeline.Pipeline
	mover     dispatch.Mover
	navHub    *hub.Hub
	validator *validator.Validate

	lastMu sync.RWMutex
	last   *NavigationEvent

	started time.Time
}

// NewServer creates the server. mover may be nil when no motors are attached;
// /api/move then answers 503.
func NewServer(port string, p *pipeline.Pipeline, mover dispatch.Mover) *Server {
	s := &Server{
		port:      port,
		pipeline:  p,
		mover:     mover,
		navHub:    hub.New(TopicNavigation),
		validator: validator.New(),
		started:   time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Rover",
		DisableStartupMessage: true,
		BodyLimit:             MaxFrameSize,
		ErrorHandler:          s.handleError,
	})

	app.Use(cors.New())
	app.Use(requestID())
	app.Use(requestLogger())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/policy", s.handlePolicy)
	api.Post("/navigate", s.handleNavigate)
	api.Post("/analyze-scene", s.handleAnalyzeScene)
	api.Post("/move", s.handleMove)
	api.Post("/autopilot", s.handleAutopilot)
	api.Get("/relay", s.handleRelay)
	api.Post("/honk", s.handleHonk)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/frames", websocket.New(s.handleFramesWS, websocket.Config{ReadBufferSize: 64 * 1024}))
	app.Get("/ws/navigation", websocket.New(s.handleNavigationWS))

	p.OnAnalysis(func(a pipeline.Analysis) {
		s.publish("autopilot", a.Navigation)
	})

	s.app = app
	return s
}

// Start runs the hub and serves until ctx is cancelled or Listen fails.
func (s *Server) Start(ctx context.Context) error {
	go s.navHub.Run(ctx)
	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			log.Warn("web shutdown", "error", err)
		}
	}()

	log.Info("web server listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// LastNavigation returns the most recently published instruction.
func (s *Server) LastNavigation() (NavigationEvent, bool) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.last == nil {
		return NavigationEvent{}, false
	}
	return *s.last, true
}

func (s *Server) publish(source string, instr navigation.Instruction) {
	ev := NavigationEvent{Source: source, Navigation: instr, Timestamp: time.Now().UTC()}

	s.lastMu.Lock()
	s.last = &ev
	s.lastMu.Unlock()

	if err := s.navHub.Publish(TopicNavigation, ev); err != nil {
		log.Warn("publish navigation", "error", err)
	}
}

// handleError renders every error that escapes a handler as JSON.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ErrorResponse{
		Error:     err.Error(),
		RequestID: RequestIDFrom(c),
	})
}
