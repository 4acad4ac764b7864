// Package rover wires the detector, translator, motors and web surface into
// one application.
package rover

import (
	"fmt"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/pkg/detection"
	"github.com/teslashibe/go-rover/pkg/dispatch"
	"github.com/teslashibe/go-rover/pkg/navigation"
)

// DefaultListenPort matches the port the camera client streams to.
const DefaultListenPort = "3000"

// Config holds all configuration for the rover application.
// Flag parsing is done in cmd/rover/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging; DebugCandidates also prints
	// every measured person, not just the selected target.
	Debug           bool
	DebugCandidates bool
	LogLevel        string

	ListenPort string

	// Motors. RelayURL wins over SerialPort; with neither, or with NoMotors,
	// the rover analyzes frames without moving.
	SerialPort string
	SerialBaud int
	RelayURL   string
	Speed      int
	NoMotors   bool

	// AutoPilot starts the rover with autopilot already on.
	AutoPilot bool

	PolicyName string
	Policy     navigation.Policy
	Detector   detection.Config
}

// DefaultConfig returns sensible defaults for the rover.
func DefaultConfig() Config {
	return Config{
		LogLevel:   "info",
		ListenPort: DefaultListenPort,
		SerialPort: dispatch.DefaultPortPath,
		SerialBaud: dispatch.DefaultBaudRate,
		Speed:      dispatch.DefaultSpeed,
		PolicyName: "default",
		Policy:     navigation.DefaultPolicy(),
		Detector:   detection.DefaultConfig(),
	}
}

// LoadEnvConfig loads configuration values from environment variables.
// Call this before flag parsing so flags can override it.
func (c *Config) LoadEnvConfig() error {
	c.LogLevel = config.String(config.EnvLogLevel, c.LogLevel)
	c.ListenPort = config.String(config.EnvListenPort, c.ListenPort)
	c.SerialPort = config.String(config.EnvSerialPort, c.SerialPort)
	c.SerialBaud = config.Int(config.EnvSerialBaud, c.SerialBaud)
	c.RelayURL = config.String(config.EnvRelayURL, c.RelayURL)
	c.Detector.ModelPath = config.String(config.EnvModelPath, c.Detector.ModelPath)
	c.Detector.ConfigPath = config.String(config.EnvModelConfig, c.Detector.ConfigPath)
	c.Detector.LabelsPath = config.String(config.EnvModelLabels, c.Detector.LabelsPath)

	if name := config.String(config.EnvNavPolicy, ""); name != "" {
		if err := c.UsePolicy(name); err != nil {
			return err
		}
	}
	c.Policy.ConfidenceThreshold = config.Float(config.EnvConfidenceThreshold, c.Policy.ConfidenceThreshold)
	return nil
}

// UsePolicy switches to a named calibration preset, keeping the target mode.
func (c *Config) UsePolicy(name string) error {
	p, err := navigation.PresetPolicy(name)
	if err != nil {
		return &ConfigError{Field: "Policy", Message: err.Error()}
	}
	p.Mode = c.Policy.Mode
	c.PolicyName = name
	c.Policy = p
	return nil
}

// Validate checks the configuration and aligns the detector with the policy:
// a policy calibrated on detector frames needs letterboxing and vice versa.
func (c *Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return &ConfigError{Field: "Policy", Message: err.Error()}
	}
	if c.ListenPort == "" {
		return &ConfigError{Field: "ListenPort", Message: "listen port is required"}
	}
	if !c.NoMotors && c.RelayURL == "" {
		if _, err := c.PortOptions().Normalize(); err != nil {
			return &ConfigError{Field: "SerialBaud", Message: err.Error()}
		}
	}

	c.Detector.Letterbox = c.Policy.RatioSpace == navigation.SpaceDetector
	c.Detector.ConfidenceThresh = c.Policy.ConfidenceThreshold
	return nil
}

// PortOptions returns the serial options for the motor board.
func (c Config) PortOptions() dispatch.PortOptions {
	return dispatch.PortOptions{BaudRate: c.SerialBaud}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}
