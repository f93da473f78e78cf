package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gnss-bridge/internal/config"
	"gnss-bridge/internal/web"
)

func main() {
	var configPath, summarizePath string
	flag.StringVar(&configPath, "config", "./gnss-bridge.yaml", "Path to YAML config")
	flag.StringVar(&summarizePath, "summarize", "", "Print a summary of a recorded unit log and exit")
	flag.Parse()

	if summarizePath != "" {
		if err := printLogSummary(os.Stdout, summarizePath); err != nil {
			log.Fatalf("summarize failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(cfg.Logs.BufferLines)
	closeLogs, err := setupLogging(cfg.Logs, os.Stdout, logs)
	if err != nil {
		log.Fatalf("setup logging failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	log.Printf("gnss-bridge starting config=%s", configPath)
	err = run(ctx, cfg, logs)
	cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("gnss-bridge failed: %v", err)
		closeLogs()
		os.Exit(1)
	}
	log.Printf("gnss-bridge stopped")
	closeLogs()
}
