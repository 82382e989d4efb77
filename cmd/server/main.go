package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"floorcrawl/internal/app"
	"floorcrawl/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("FLOORCRAWL_CONFIG")
	}

	logger := telemetry.WrapLogger(log.Default())

	cfg, err := app.Load(path, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Options{Config: cfg, Logger: logger}); err != nil {
		log.Fatalf("%v", err)
	}
}
