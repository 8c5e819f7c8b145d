// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key for user ID
	UserIDKey contextKey = "user_id"
	// BoardIDKey is the context key for the board a request operates on
	BoardIDKey contextKey = "board_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a logger writing to w. Tests use it to capture output.
func NewWithWriter(env string, w io.Writer) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") || strings.EqualFold(env, "test") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, user_id, and board_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.With("request_id", requestID)
	}

	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		newLogger = newLogger.With("user_id", userID)
	}

	if boardID, ok := ctx.Value(BoardIDKey).(string); ok && boardID != "" {
		newLogger = newLogger.With("board_id", boardID)
	}

	return newLogger
}

// With returns a logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// TransitionCommitted logs a lead move that reached storage.
func (l *Logger) TransitionCommitted(boardID, leadID, fromStageID, toStageID string) {
	l.Info("transition_committed",
		slog.String("board_id", boardID),
		slog.String("lead_id", leadID),
		slog.String("from_stage_id", fromStageID),
		slog.String("to_stage_id", toStageID),
	)
}

// TransitionRolledBack logs a lead move that was undone after a storage failure.
func (l *Logger) TransitionRolledBack(boardID, leadID, toStageID string, err error) {
	l.Warn("transition_rolled_back",
		slog.String("board_id", boardID),
		slog.String("lead_id", leadID),
		slog.String("to_stage_id", toStageID),
		slog.String("error", err.Error()),
	)
}

// AuditWriteFailed logs a history entry that could not be stored.
// The move it describes stays committed.
func (l *Logger) AuditWriteFailed(leadID, entryID string, err error) {
	l.Error("audit_write_failed",
		slog.String("lead_id", leadID),
		slog.String("history_entry_id", entryID),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
