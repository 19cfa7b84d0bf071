package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/config"
)

// Error classes separate infrastructure faults from code defects in 500-level
// logs so alerting can page on the former.
const (
	ClassStorageUnavailable = "storage_unavailable"
	ClassMetadataStore      = "metadata_store"
)

// New builds the process logger. Every entry carries the service name,
// environment and version so lines from several hospital sites can share a
// sink.
func New(cfg config.LogConfig, app config.AppConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "ts"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{cfg.OutputPath}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	log, err := zapCfg.Build(
		zap.WithCaller(true),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return log.With(
		zap.String("service", app.Name),
		zap.String("env", app.Environment),
		zap.String("version", app.Version),
	), nil
}

func ErrorClass(class string) zap.Field {
	return zap.String("error_class", class)
}

func RequestID(id string) zap.Field {
	return zap.String("request_id", id)
}

func ConsultationID(id string) zap.Field {
	return zap.String("consultation_id", id)
}

// VideoPath names a stored video by its folder and file, never by its
// absolute path on the share.
func VideoPath(folder, fileName string) zap.Field {
	return zap.String("video", folder+"/"+fileName)
}
