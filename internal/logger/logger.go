package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// New builds a zap logger: development config when env is "development",
// production config otherwise. level and encoding override the defaults.
func New(env, level, encoding string) (*zap.Logger, error) {
	var zapCfg zap.Config
	if strings.EqualFold(env, "development") {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log.level: %w", err)
		}
	}

	if encoding != "" {
		zapCfg.Encoding = encoding
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger failed: %w", err)
	}
	return logger, nil
}
