// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ruralpay/atmledger/internal/config"
)

// New builds a logger from cfg. The console format uses zap's development
// profile and defaults to debug; json uses the production profile and
// defaults to info.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	console := strings.EqualFold(cfg.Format, "console")

	base := zap.NewProductionConfig()
	if console {
		base = zap.NewDevelopmentConfig()
	} else {
		base.Encoding = "json"
	}
	base.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	base.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	base.DisableStacktrace = true

	level, err := resolveLevel(cfg.Level, console)
	if err != nil {
		return nil, err
	}
	base.Level = level

	built, err := base.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return built.Named("atmledger"), nil
}

func resolveLevel(raw string, console bool) (zap.AtomicLevel, error) {
	if strings.TrimSpace(raw) != "" {
		var parsed zapcore.Level
		if err := parsed.Set(raw); err != nil {
			return zap.AtomicLevel{}, fmt.Errorf("invalid level %q: %w", raw, err)
		}
		return zap.NewAtomicLevelAt(parsed), nil
	}
	if console {
		return zap.NewAtomicLevelAt(zapcore.DebugLevel), nil
	}
	return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
}
