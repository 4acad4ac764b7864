package rover

import (
	"context"
	"fmt"
	"time"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/debug"
	"github.com/teslashibe/go-rover/pkg/detection"
	"github.com/teslashibe/go-rover/pkg/dispatch"
	"github.com/teslashibe/go-rover/pkg/navigation"
	"github.com/teslashibe/go-rover/pkg/pipeline"
	"github.com/teslashibe/go-rover/pkg/web"
)

// Option overrides a component the App would otherwise build itself.
type Option func(*App)

// WithDetector uses d instead of loading the YOLO model.
func WithDetector(d detection.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithMover uses m instead of opening the serial port or relay.
func WithMover(m dispatch.Mover) Option {
	return func(a *App) { a.mover = m }
}

// App is the main rover application.
// It manages all components and their lifecycle.
type App struct {
	config Config

	detector   detection.Detector
	translator *navigation.Translator
	mover      dispatch.Mover
	serial     *dispatch.Dispatcher
	relay      *dispatch.Relay

	pipeline  *pipeline.Pipeline
	webServer *web.Server
}

// New creates a new rover application with the given configuration.
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	debug.Enabled = cfg.Debug || cfg.DebugCandidates
	debug.Candidates = cfg.DebugCandidates

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	log.Init(level)

	app := &App{config: cfg}
	for _, opt := range opts {
		opt(app)
	}
	return app, nil
}

// Init initializes all components.
// Call this after New() and before Run().
func (a *App) Init() error {
	log.Info("rover starting",
		"policy", a.config.PolicyName,
		"mode", a.config.Policy.Mode,
		"ratio_space", a.config.Policy.RatioSpace)

	translator, err := navigation.New(a.config.Policy)
	if err != nil {
		return fmt.Errorf("translator: %w", err)
	}
	a.translator = translator

	if a.detector == nil {
		yolo, err := detection.NewYOLO(a.config.Detector)
		if err != nil {
			return fmt.Errorf("detector: %w", err)
		}
		a.detector = yolo
		log.Info("detector loaded", "model", a.config.Detector.ModelPath, "letterbox", a.config.Detector.Letterbox)
	}

	if a.mover == nil && !a.config.NoMotors {
		if err := a.initMotors(); err != nil {
			return fmt.Errorf("motors: %w", err)
		}
	}

	a.pipeline = pipeline.New(a.detector, a.translator, a.mover)
	a.pipeline.SetAutopilot(a.config.AutoPilot)
	a.webServer = web.NewServer(a.config.ListenPort, a.pipeline, a.mover)
	return nil
}

func (a *App) initMotors() error {
	if a.config.RelayURL != "" {
		a.relay = dispatch.NewRelay(a.config.RelayURL)
		a.mover = a.relay
		log.Info("motors via relay", "url", a.config.RelayURL)
		return nil
	}

	d, err := dispatch.Open(a.config.SerialPort, a.config.PortOptions(), a.config.Speed)
	if err != nil {
		return err
	}
	a.serial = d
	a.mover = d
	return nil
}

// Run serves until ctx is cancelled or the web server fails.
func (a *App) Run(ctx context.Context) error {
	if a.relay != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := a.relay.Ping(pingCtx); err != nil {
			log.Warn("relay offline", "error", err)
		}
		cancel()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.webServer.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the motors and releases every component.
func (a *App) Shutdown() {
	if a.pipeline != nil {
		a.pipeline.SetAutopilot(false)
	}
	if a.mover != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.mover.Move(ctx, dispatch.Stop); err != nil {
			log.Warn("final stop failed", "error", err)
		}
		cancel()
	}
	if a.webServer != nil {
		if err := a.webServer.Shutdown(); err != nil {
			log.Debug("web shutdown", "error", err)
		}
	}
	if a.serial != nil {
		a.serial.Close()
	}
	if a.detector != nil {
		a.detector.Close()
	}
	log.Info("rover stopped")
}

// Pipeline returns the frame pipeline. Valid after Init.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Server returns the web server. Valid after Init.
func (a *App) Server() *web.Server {
	return a.webServer
}
