package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"gnss-bridge/internal/config"
)

// setupLogging points the standard logger at stdout, the in-memory buffer
// served by /api/logs and, when logs.path is set, a rotating file.
func setupLogging(cfg config.LogsConfig, stdout io.Writer, extra ...io.Writer) (func(), error) {
	writers := []io.Writer{stdout}
	for _, w := range extra {
		if w != nil {
			writers = append(writers, w)
		}
	}

	closeFn := func() {}
	if path := strings.TrimSpace(cfg.Path); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxAge:     cfg.MaxAgeDays,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		}
		writers = append(writers, rotator)
		closeFn = func() { _ = rotator.Close() }
	}

	log.SetOutput(io.MultiWriter(writers...))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return closeFn, nil
}
