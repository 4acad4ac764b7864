// Package config provides environment helpers for go-rover commands.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/teslashibe/go-rover/internal/log"
)

// Environment variable names.
const (
	EnvListenPort          = "LISTEN_PORT"
	EnvSerialPort          = "SERIAL_PORT"
	EnvSerialBaud          = "SERIAL_BAUD"
	EnvRelayURL            = "RELAY_URL"
	EnvModelPath           = "MODEL_PATH"
	EnvModelConfig         = "MODEL_CONFIG"
	EnvModelLabels         = "MODEL_LABELS"
	EnvNavPolicy           = "NAV_POLICY"
	EnvConfidenceThreshold = "CONFIDENCE_THRESHOLD"
	EnvLogLevel            = "LOG_LEVEL"
)

// LoadDotEnv loads variables from the given files (".env" when none are
// given) without overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		present = append(present, f)
	}
	if len(present) == 0 {
		return nil
	}

	if err := godotenv.Load(present...); err != nil {
		return err
	}
	log.Debug("loaded env files", "files", present)
	return nil
}

// String returns the env var or def when unset or blank.
func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Int returns the env var parsed as an int, or def when unset or invalid.
func Int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn("ignoring invalid integer env var", "key", key, "value", v)
		return def
	}
	return n
}

// Float returns the env var parsed as a float64, or def when unset or invalid.
func Float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn("ignoring invalid float env var", "key", key, "value", v)
		return def
	}
	return f
}

// Bool returns the env var parsed with strconv.ParseBool, or def.
func Bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn("ignoring invalid bool env var", "key", key, "value", v)
		return def
	}
	return b
}
