package logging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with settlement-specific helpers
type Logger struct {
	*zap.Logger
	serviceName string
}

// Config represents logger configuration
type Config struct {
	Level       string `json:"level" yaml:"level"`
	Format      string `json:"format" yaml:"format"`
	Output      string `json:"output" yaml:"output"`
	ServiceName string `json:"service_name" yaml:"service_name"`
	Development bool   `json:"development" yaml:"development"`
}

// Field represents a log field
type Field = zapcore.Field

type contextKey string

const requestIDKey contextKey = "request_id"

// NewLogger creates a new logger instance
func NewLogger(config Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var zapConfig zap.Config
	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig.Level = zap.NewAtomicLevelAt(level)

	switch strings.ToLower(config.Format) {
	case "console":
		zapConfig.Encoding = "console"
	default:
		zapConfig.Encoding = "json"
	}

	switch strings.ToLower(config.Output) {
	case "", "stdout":
		zapConfig.OutputPaths = []string{"stdout"}
	case "stderr":
		zapConfig.OutputPaths = []string{"stderr"}
	default:
		zapConfig.OutputPaths = []string{config.Output}
	}

	zapConfig.InitialFields = map[string]interface{}{
		"service": config.ServiceName,
	}

	zapLogger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: config.ServiceName,
	}, nil
}

// NewDevelopmentLogger creates a development logger
func NewDevelopmentLogger(serviceName string) *Logger {
	logger, err := NewLogger(Config{
		Level:       "debug",
		Format:      "console",
		Output:      "stdout",
		ServiceName: serviceName,
		Development: true,
	})
	if err != nil {
		return NewFromZap(zap.NewExample(), serviceName)
	}
	return logger
}

// NewFromZap wraps an existing zap logger, e.g. one built by zaptest
func NewFromZap(zapLogger *zap.Logger, serviceName string) *Logger {
	return &Logger{
		Logger:      zapLogger.With(zap.String("service", serviceName)),
		serviceName: serviceName,
	}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// ServiceName returns the service the logger was created for
func (l *Logger) ServiceName() string {
	return l.serviceName
}

// ContextWithRequestID stores the request id for later log enrichment
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id stored by ContextWithRequestID
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}

// WithContext adds context information to logger
func (l *Logger) WithContext(ctx context.Context) *Logger {
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		return l
	}
	return l.WithFields(zap.String("request_id", requestID))
}

// WithComponent adds component information to logger
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields(zap.String("component", component))
}

// WithFields adds multiple fields to logger
func (l *Logger) WithFields(fields ...Field) *Logger {
	return &Logger{
		Logger:      l.Logger.With(fields...),
		serviceName: l.serviceName,
	}
}

// LogBusinessEvent logs settlement lifecycle events in a uniform shape
func (l *Logger) LogBusinessEvent(eventType, description string, fields ...Field) {
	allFields := append([]Field{
		zap.String("event_type", "business"),
		zap.String("business_event_type", eventType),
		zap.String("description", description),
		zap.Time("event_timestamp", time.Now().UTC()),
	}, fields...)

	l.Info("Business event", allFields...)
}

// LogPerformance logs the duration of an operation
func (l *Logger) LogPerformance(operation string, duration time.Duration, fields ...Field) {
	allFields := append([]Field{
		zap.String("event_type", "performance"),
		zap.String("operation", operation),
		zap.Duration("duration", duration),
		zap.Float64("duration_ms", float64(duration.Nanoseconds())/1000000),
	}, fields...)

	l.Debug("Performance metric", allFields...)
}

// OrderID creates the order id field
func OrderID(orderID string) Field {
	return zap.String("order_id", orderID)
}

// ListingID creates the listing id field
func ListingID(listingID string) Field {
	return zap.String("listing_id", listingID)
}

// Status creates a status field
func Status(status string) Field {
	return zap.String("status", status)
}

// Cleanup flushes any buffered log entries
func (l *Logger) Cleanup() {
	if l.Logger != nil {
		_ = l.Logger.Sync()
	}
}
