package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	// Global loggers
	mainLogger     *slog.Logger
	requestsLogger *slog.Logger

	// Log level mapping
	logLevelMap = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

// initLogging initializes the logging system with file and optional stderr handlers
func initLogging(logLevel string, verbose bool) error {
	// Parse log level
	level, ok := logLevelMap[strings.ToLower(logLevel)]
	if !ok {
		level = slog.LevelWarn // Default to WARN
	}

	// Get XDG cache directory
	logDir := getXDGCacheDir()
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	// Create log file
	logPath := filepath.Join(logDir, "changelist.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	// Create file handler with JSON format for structured logging
	var mainHandler slog.Handler = slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})

	// If verbose is true, also log to stderr
	if verbose {
		stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
		mainHandler = &multiHandler{
			handlers: []slog.Handler{mainHandler, stderrHandler},
		}
	}

	mainLogger = slog.New(mainHandler)
	slog.SetDefault(mainLogger)

	// Create requests logger (used by the serve command)
	requestsLogPath := filepath.Join(logDir, "changelist-requests.log")
	requestsLogFile, err := os.OpenFile(requestsLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open requests log file: %w", err)
	}

	var requestsHandler slog.Handler = slog.NewJSONHandler(requestsLogFile, &slog.HandlerOptions{
		Level: slog.LevelInfo, // Always log requests at INFO level
	})
	if verbose {
		stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
		requestsHandler = &multiHandler{
			handlers: []slog.Handler{requestsHandler, stderrHandler},
		}
	}
	requestsLogger = slog.New(requestsHandler).With("logger", "requests")

	mainLogger.Debug("logging initialized",
		"level", level.String(),
		"log_file", logPath,
		"requests_file", requestsLogPath,
		"verbose", verbose)

	return nil
}

// getXDGCacheDir returns the XDG cache directory for changelist
func getXDGCacheDir() string {
	// First check XDG_CACHE_HOME
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, "changelist")
	}

	// Fall back to default based on OS
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Last resort - use temp directory
		return filepath.Join(os.TempDir(), "changelist")
	}

	if runtime.GOOS == "darwin" {
		// macOS uses ~/Library/Caches
		return filepath.Join(homeDir, "Library", "Caches", "changelist")
	}

	// Linux and others use ~/.cache
	return filepath.Join(homeDir, ".cache", "changelist")
}

// multiHandler implements slog.Handler to write to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if err := handler.Handle(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
