package logging

import (
	"go.uber.org/zap"
)

// NewLogger builds a structured logger. Production environments get JSON
// output at Info; everything else gets the console development encoder.
func NewLogger(environment string) (*zap.Logger, error) {
	if environment != "production" {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	return cfg.Build()
}

// WithOperation enriches the logger with operation and request identifiers.
func WithOperation(logger *zap.Logger, operation, requestID string) *zap.Logger {
	fields := []zap.Field{zap.String("operation", operation)}
	if requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	return logger.With(fields...)
}
