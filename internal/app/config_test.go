package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"floorcrawl/internal/telemetry"
)

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	contents := `addr: ":9999"
tickRate: 20
seed: fixed-seed
clientDir: ./client
scoreBackendUrl: http://scores.local
scoreTimeoutMs: 750
viewportW: 1024
viewportH: 768
debugEndpoints: true
log:
  sinks: [console, json]
  jsonPath: /tmp/floorcrawl-events.log
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("expected addr :9999, got %q", cfg.Addr)
	}
	if cfg.TickRate != 20 {
		t.Fatalf("expected tick rate 20, got %d", cfg.TickRate)
	}
	if cfg.Seed != "fixed-seed" {
		t.Fatalf("expected seed fixed-seed, got %q", cfg.Seed)
	}
	if cfg.ClientDir != "./client" {
		t.Fatalf("expected client dir ./client, got %q", cfg.ClientDir)
	}
	if cfg.ScoreBackendURL != "http://scores.local" {
		t.Fatalf("expected score backend, got %q", cfg.ScoreBackendURL)
	}
	if cfg.ScoreTimeoutMS != 750 {
		t.Fatalf("expected score timeout 750, got %d", cfg.ScoreTimeoutMS)
	}
	if cfg.ViewportW != 1024 || cfg.ViewportH != 768 {
		t.Fatalf("expected viewport 1024x768, got %vx%v", cfg.ViewportW, cfg.ViewportH)
	}
	if !cfg.DebugEndpoints {
		t.Fatal("expected debug endpoints enabled")
	}
	if len(cfg.Log.Sinks) != 2 || cfg.Log.Sinks[0] != "console" || cfg.Log.Sinks[1] != "json" {
		t.Fatalf("expected console+json sinks, got %v", cfg.Log.Sinks)
	}
	if cfg.Log.JSONPath != "/tmp/floorcrawl-events.log" {
		t.Fatalf("expected json path, got %q", cfg.Log.JSONPath)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "read config") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("addr: [unterminated"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path, nil)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("ADDR", ":7777")
	t.Setenv("TICK_RATE", "15")
	t.Setenv("WORLD_SEED", "env-seed")
	t.Setenv("CLIENT_DIR", "/srv/client")
	t.Setenv("SCORE_BACKEND_URL", "http://env.local")
	t.Setenv("SCORE_TIMEOUT_MS", "1200")
	t.Setenv("DEBUG_ENDPOINTS", "true")
	t.Setenv("LOG_SINKS", "console, json")
	t.Setenv("LOG_JSON_PATH", "/tmp/env-events.log")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr != ":7777" {
		t.Fatalf("expected env addr, got %q", cfg.Addr)
	}
	if cfg.TickRate != 15 {
		t.Fatalf("expected env tick rate, got %d", cfg.TickRate)
	}
	if cfg.Seed != "env-seed" {
		t.Fatalf("expected env seed, got %q", cfg.Seed)
	}
	if cfg.ClientDir != "/srv/client" {
		t.Fatalf("expected env client dir, got %q", cfg.ClientDir)
	}
	if cfg.ScoreBackendURL != "http://env.local" {
		t.Fatalf("expected env score backend, got %q", cfg.ScoreBackendURL)
	}
	if cfg.ScoreTimeoutMS != 1200 {
		t.Fatalf("expected env score timeout, got %d", cfg.ScoreTimeoutMS)
	}
	if !cfg.DebugEndpoints {
		t.Fatal("expected env debug endpoints enabled")
	}
	if len(cfg.Log.Sinks) != 2 || cfg.Log.Sinks[0] != "console" || cfg.Log.Sinks[1] != "json" {
		t.Fatalf("expected trimmed sink list, got %v", cfg.Log.Sinks)
	}
	if cfg.Log.JSONPath != "/tmp/env-events.log" {
		t.Fatalf("expected env json path, got %q", cfg.Log.JSONPath)
	}
}

func TestLoadSkipsInvalidEnvValues(t *testing.T) {
	t.Setenv("TICK_RATE", "fast")
	t.Setenv("DEBUG_ENDPOINTS", "sometimes")

	var warnings []string
	logger := telemetry.LoggerFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	cfg, err := Load("", logger)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TickRate != 30 {
		t.Fatalf("expected default tick rate after bad override, got %d", cfg.TickRate)
	}
	if cfg.DebugEndpoints {
		t.Fatal("expected debug endpoints to stay disabled")
	}
	if len(warnings) != 2 {
		t.Fatalf("expected two override warnings, got %v", warnings)
	}
	if !strings.Contains(warnings[0], "TICK_RATE") {
		t.Fatalf("expected TICK_RATE warning first, got %q", warnings[0])
	}
}

func TestNormalizedFillsDefaults(t *testing.T) {
	cfg := Config{}.Normalized()
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.TickRate != 30 {
		t.Fatalf("expected default tick rate, got %d", cfg.TickRate)
	}
	if cfg.ScoreTimeoutMS != 3000 {
		t.Fatalf("expected default score timeout, got %d", cfg.ScoreTimeoutMS)
	}
	if cfg.ViewportW != 800 || cfg.ViewportH != 600 {
		t.Fatalf("expected default viewport, got %vx%v", cfg.ViewportW, cfg.ViewportH)
	}
	if len(cfg.Log.Sinks) != 1 || cfg.Log.Sinks[0] != "console" {
		t.Fatalf("expected console sink default, got %v", cfg.Log.Sinks)
	}
}

func TestBuildLogRouterRejectsUnknownSink(t *testing.T) {
	cfg := Config{Log: LogConfig{Sinks: []string{"syslog"}}}.Normalized()
	_, _, err := buildLogRouter(cfg, nil)
	if err == nil {
		t.Fatal("expected error for unknown sink")
	}
	if !strings.Contains(err.Error(), "unknown log sink") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildLogRouterRequiresJSONPath(t *testing.T) {
	cfg := Config{Log: LogConfig{Sinks: []string{"json"}}}.Normalized()
	_, _, err := buildLogRouter(cfg, nil)
	if err == nil {
		t.Fatal("expected error for json sink without a path")
	}
	if !strings.Contains(err.Error(), "jsonPath") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildLogRouterOpensJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	cfg := Config{Log: LogConfig{Sinks: []string{"json"}, JSONPath: path}}.Normalized()

	router, file, err := buildLogRouter(cfg, nil)
	if err != nil {
		t.Fatalf("buildLogRouter returned error: %v", err)
	}
	if file == nil {
		t.Fatal("expected an open file backing the json sink")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close router: %v", err)
	}
	file.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("json log file missing: %v", err)
	}
}
