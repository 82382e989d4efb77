package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"floorcrawl/internal/telemetry"
)

// Config is the server's file configuration. Every field has a default, so
// a missing file still boots a playable server.
type Config struct {
	Addr            string    `yaml:"addr"`
	TickRate        int       `yaml:"tickRate"`
	Seed            string    `yaml:"seed"`
	ClientDir       string    `yaml:"clientDir"`
	ScoreBackendURL string    `yaml:"scoreBackendUrl"`
	ScoreTimeoutMS  int       `yaml:"scoreTimeoutMs"`
	ViewportW       float64   `yaml:"viewportW"`
	ViewportH       float64   `yaml:"viewportH"`
	DebugEndpoints  bool      `yaml:"debugEndpoints"`
	Log             LogConfig `yaml:"log"`
}

// LogConfig selects the structured logging sinks.
type LogConfig struct {
	Sinks    []string `yaml:"sinks"`
	JSONPath string   `yaml:"jsonPath"`
}

// Load reads the YAML file when path is non-empty, applies environment
// overrides and fills defaults. Invalid override values are logged and
// skipped rather than failing the boot.
func Load(path string, logger telemetry.Logger) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(logger)
	return cfg.Normalized(), nil
}

func (c *Config) applyEnv(logger telemetry.Logger) {
	if raw := os.Getenv("ADDR"); raw != "" {
		c.Addr = raw
	}
	if raw := os.Getenv("TICK_RATE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			c.TickRate = value
		} else if logger != nil {
			logger.Printf("invalid TICK_RATE=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("WORLD_SEED"); raw != "" {
		c.Seed = raw
	}
	if raw := os.Getenv("CLIENT_DIR"); raw != "" {
		c.ClientDir = raw
	}
	if raw := os.Getenv("SCORE_BACKEND_URL"); raw != "" {
		c.ScoreBackendURL = raw
	}
	if raw := os.Getenv("SCORE_TIMEOUT_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			c.ScoreTimeoutMS = value
		} else if logger != nil {
			logger.Printf("invalid SCORE_TIMEOUT_MS=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("DEBUG_ENDPOINTS"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			c.DebugEndpoints = value
		} else if logger != nil {
			logger.Printf("invalid DEBUG_ENDPOINTS=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("LOG_SINKS"); raw != "" {
		var sinks []string
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				sinks = append(sinks, name)
			}
		}
		if len(sinks) > 0 {
			c.Log.Sinks = sinks
		}
	}
	if raw := os.Getenv("LOG_JSON_PATH"); raw != "" {
		c.Log.JSONPath = raw
	}
}

// Normalized returns a config with defaults applied to zero fields.
func (c Config) Normalized() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.TickRate <= 0 {
		c.TickRate = 30
	}
	if c.ScoreTimeoutMS <= 0 {
		c.ScoreTimeoutMS = 3000
	}
	if c.ViewportW <= 0 {
		c.ViewportW = 800
	}
	if c.ViewportH <= 0 {
		c.ViewportH = 600
	}
	if len(c.Log.Sinks) == 0 {
		c.Log.Sinks = []string{"console"}
	}
	return c
}
