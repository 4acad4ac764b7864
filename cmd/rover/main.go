// Rover serves the navigation API and, in autopilot, follows the closest
// person seen by the camera.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/navigation"
	"github.com/teslashibe/go-rover/pkg/rover"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(2)
	}

	app, err := rover.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(2)
	}

	if err := app.Init(); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
		app.Shutdown()
		os.Exit(1)
	}
}

// parseFlags parses command line flags on top of the environment.
func parseFlags() (rover.Config, error) {
	cfg := rover.DefaultConfig()
	if err := cfg.LoadEnvConfig(); err != nil {
		return cfg, err
	}

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	candidates := flag.Bool("debug-candidates", false, "Print every measured person, not just the target")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	port := flag.String("port", cfg.ListenPort, "HTTP listen port")
	serialPort := flag.String("serial", cfg.SerialPort, "Motor board serial device")
	baud := flag.Int("baud", cfg.SerialBaud, "Motor board baud rate")
	relay := flag.String("relay", cfg.RelayURL, "Motor relay URL (overrides --serial)")
	speed := flag.Int("speed", cfg.Speed, "Wheel speed for mogo commands")
	noMotors := flag.Bool("no-motors", false, "Analyze frames without moving")
	autopilot := flag.Bool("autopilot", false, "Start with autopilot on")
	policy := flag.String("policy", cfg.PolicyName, "Calibration preset: default, legacy")
	mode := flag.String("mode", cfg.Policy.Mode.String(), "Target policy: closest, all")
	threshold := flag.Float64("threshold", cfg.Policy.ConfidenceThreshold, "Detection confidence threshold (strict >)")
	model := flag.String("model", cfg.Detector.ModelPath, "YOLO model (.onnx or .weights)")
	modelCfg := flag.String("model-config", cfg.Detector.ConfigPath, "Darknet .cfg (empty for ONNX)")
	labels := flag.String("labels", cfg.Detector.LabelsPath, "Class labels file (empty for COCO)")
	flag.Parse()

	mset := false
	tset := false
	flag.Visit(func(f *flag.Flag) {
		mset = mset || f.Name == "mode"
		tset = tset || f.Name == "threshold"
	})

	if *policy != cfg.PolicyName {
		if err := cfg.UsePolicy(*policy); err != nil {
			return cfg, err
		}
	}
	if mset {
		m, err := navigation.ParsePolicy(*mode)
		if err != nil {
			return cfg, err
		}
		cfg.Policy.Mode = m
	}
	if tset {
		cfg.Policy.ConfidenceThreshold = *threshold
	}

	cfg.Debug, cfg.DebugCandidates, cfg.LogLevel = *debug, *candidates, *logLevel
	cfg.ListenPort, cfg.SerialPort, cfg.SerialBaud = *port, *serialPort, *baud
	cfg.RelayURL, cfg.Speed, cfg.NoMotors, cfg.AutoPilot = *relay, *speed, *noMotors, *autopilot
	cfg.Detector.ModelPath, cfg.Detector.ConfigPath, cfg.Detector.LabelsPath = *model, *modelCfg, *labels
	return cfg, nil
}
