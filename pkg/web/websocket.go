package web

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/pipeline"
)

const (
	frameReadTimeout  = 60 * time.Second
	frameWriteTimeout = 10 * time.Second
)

// handleFramesWS receives binary JPEG frames and answers each processed frame
// with its Analysis. With autopilot on, frames also drive the motors and
// frames arriving while one is in flight are skipped without a reply.
func (s *Server) handleFramesWS(c *websocket.Conn) {
	logger := log.With("ws", "frames", "remote", c.RemoteAddr().String())
	logger.Info("frame source connected")
	defer logger.Info("frame source disconnected")

	c.SetReadLimit(MaxFrameSize)

	for {
		if err := c.SetReadDeadline(time.Now().Add(frameReadTimeout)); err != nil {
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("frame socket error", "error", err)
			}
			break
		}
		if messageType != websocket.BinaryMessage {
			logger.Warn("unexpected message type", "type", messageType)
			continue
		}

		a, ok, err := s.processFrame(message)
		if err != nil {
			logger.Warn("frame failed", "error", err)
			if writeErr := c.WriteJSON(ErrorResponse{Error: err.Error(), Code: "ANALYSIS_FAILED"}); writeErr != nil {
				break
			}
			continue
		}
		if !ok {
			continue
		}

		if err := c.SetWriteDeadline(time.Now().Add(frameWriteTimeout)); err != nil {
			break
		}
		if err := c.WriteJSON(a); err != nil {
			logger.Warn("write analysis", "error", err)
			break
		}
	}
}

func (s *Server) processFrame(jpeg []byte) (pipeline.Analysis, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), frameWriteTimeout)
	defer cancel()

	if s.pipeline.Autopilot() {
		return s.pipeline.Drive(ctx, jpeg)
	}
	a, err := s.pipeline.Analyze(ctx, jpeg)
	return a, err == nil, err
}

// handleNavigationWS subscribes the connection to every published instruction.
// The latest instruction, if any, is sent first.
func (s *Server) handleNavigationWS(c *websocket.Conn) {
	if last, ok := s.LastNavigation(); ok {
		if data, err := json.Marshal(last); err == nil {
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn("write last navigation", "error", err)
				return
			}
		}
	}
	hub.NewClient(s.navHub, c).Run()
}
