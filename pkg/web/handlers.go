package web

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/dispatch"
	"github.com/teslashibe/go-rover/pkg/navigation"
	"github.com/teslashibe/go-rover/pkg/pipeline"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Code      string   `json:"code,omitempty"`
	Field     string   `json:"field,omitempty"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// FrameRequest is the frame geometry part of a navigate request.
type FrameRequest struct {
	Width  int                   `json:"width" validate:"gt=0"`
	Height int                   `json:"height" validate:"gt=0"`
	Space  navigation.FrameSpace `json:"space"`
}

// NavigateRequest is the body of POST /api/navigate.
type NavigateRequest struct {
	Frame FrameRequest     `json:"frame"`
	Boxes []navigation.Box `json:"boxes" validate:"max=300"`
}

// MoveRequest is the body of POST /api/move. A positive DurationMs holds the
// direction for that long and then stops.
type MoveRequest struct {
	Direction  string `json:"direction" validate:"required,oneof=avance recule gauche droite stop"`
	DurationMs int    `json:"durationMs" validate:"gte=0,lte=10000"`
}

// AutopilotRequest is the body of POST /api/autopilot.
type AutopilotRequest struct {
	AutoPilot *bool `json:"autoPilot" validate:"required"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	AutoPilot   bool             `json:"autoPilot"`
	Motors      bool             `json:"motors"`
	Policy      string           `json:"policy"`
	Subscribers int              `json:"subscribers"`
	Frames      pipeline.Stats   `json:"frames"`
	Uptime      string           `json:"uptime"`
	Last        *NavigationEvent `json:"last,omitempty"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := StatusResponse{
		AutoPilot:   s.pipeline.Autopilot(),
		Motors:      s.mover != nil,
		Policy:      s.pipeline.Translator().Policy().Mode.String(),
		Subscribers: s.navHub.ClientCount(),
		Frames:      s.pipeline.Stats(),
		Uptime:      time.Since(s.started).Round(time.Second).String(),
	}
	if last, ok := s.LastNavigation(); ok {
		resp.Last = &last
	}
	return c.JSON(resp)
}

func (s *Server) handlePolicy(c *fiber.Ctx) error {
	return c.JSON(s.pipeline.Translator().Policy())
}

// handleNavigate translates a snapshot posted as JSON.
func (s *Server) handleNavigate(c *fiber.Ctx) error {
	var req NavigateRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, "INVALID_BODY", err)
	}
	if err := s.validator.Struct(req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err)
	}

	frame := navigation.FrameGeometry{Width: req.Frame.Width, Height: req.Frame.Height, Space: req.Frame.Space}
	snap, err := navigation.NewSnapshot(frame, req.Boxes)
	if err != nil {
		return s.fail(c, fiber.StatusBadRequest, "INVALID_INPUT", err)
	}

	res, err := s.pipeline.Translator().Translate(snap)
	if err != nil {
		return s.fail(c, statusFor(err), "INVALID_INPUT", err)
	}

	s.publish("navigate", res.Instruction)
	return c.JSON(res)
}

// handleAnalyzeScene runs a raw JPEG body through the pipeline without moving.
func (s *Server) handleAnalyzeScene(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return s.fail(c, fiber.StatusBadRequest, "EMPTY_FRAME", errors.New("request body must be a JPEG image"))
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()

	a, err := s.pipeline.Analyze(ctx, body)
	if err != nil {
		return s.fail(c, statusFor(err), "ANALYSIS_FAILED", err)
	}

	s.publish("analyze", a.Navigation)
	return c.JSON(a)
}

func (s *Server) handleMove(c *fiber.Ctx) error {
	var req MoveRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, "INVALID_BODY", err)
	}
	if err := s.validator.Struct(req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err)
	}
	if s.mover == nil {
		return s.fail(c, fiber.StatusServiceUnavailable, "NO_MOTORS", errors.New("no motor controller attached"))
	}

	dir, err := dispatch.ParseDirection(req.Direction)
	if err != nil {
		return s.fail(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err)
	}

	if req.DurationMs > 0 {
		ctx, cancel := context.WithTimeout(c.UserContext(), time.Duration(req.DurationMs)*time.Millisecond)
		defer cancel()
		err = dispatch.Hold(ctx, s.mover, dir, dispatch.DefaultRepeat)
	} else {
		err = s.mover.Move(c.UserContext(), dir)
	}
	if err != nil {
		return s.fail(c, fiber.StatusBadGateway, "MOTOR_ERROR", err)
	}

	log.Info("manual move", "request_id", RequestIDFrom(c), "direction", dir, "duration_ms", req.DurationMs)
	return c.JSON(req)
}

func (s *Server) handleAutopilot(c *fiber.Ctx) error {
	var req AutopilotRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, "INVALID_BODY", err)
	}
	if err := s.validator.Struct(req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err)
	}

	s.pipeline.SetAutopilot(*req.AutoPilot)
	if !*req.AutoPilot && s.mover != nil {
		if err := s.mover.Move(c.UserContext(), dispatch.Stop); err != nil {
			log.Warn("stop on autopilot off", "error", err)
		}
	}
	return c.JSON(fiber.Map{"autoPilot": s.pipeline.Autopilot()})
}

// pinger and honker are optional capabilities of the HTTP relay.
type pinger interface {
	Ping(ctx context.Context) error
}

type honker interface {
	Honk(ctx context.Context) error
}

// handleRelay reports whether the motor relay answers.
func (s *Server) handleRelay(c *fiber.Ctx) error {
	p, ok := s.mover.(pinger)
	if !ok {
		return s.fail(c, fiber.StatusNotImplemented, "NO_RELAY", errors.New("motors are not behind an HTTP relay"))
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		return s.fail(c, fiber.StatusBadGateway, "RELAY_OFFLINE", err)
	}
	return c.JSON(fiber.Map{"relay": "online"})
}

func (s *Server) handleHonk(c *fiber.Ctx) error {
	h, ok := s.mover.(honker)
	if !ok {
		return s.fail(c, fiber.StatusNotImplemented, "NO_HORN", errors.New("no horn on this motor controller"))
	}
	if err := h.Honk(c.UserContext()); err != nil {
		return s.fail(c, fiber.StatusBadGateway, "MOTOR_ERROR", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, navigation.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusUnprocessableEntity
	}
}

func (s *Server) fail(c *fiber.Ctx, status int, code string, err error) error {
	resp := ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: RequestIDFrom(c),
	}

	var inputErr *navigation.InputError
	if errors.As(err, &inputErr) {
		resp.Field = inputErr.Field
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Error = "validation failed"
		for _, fe := range verrs {
			resp.Details = append(resp.Details, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	log.Debug("request rejected", "request_id", resp.RequestID, "code", code, "error", err)
	return c.Status(status).JSON(resp)
}
