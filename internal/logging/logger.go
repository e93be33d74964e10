package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level and encoding of the process logger.
type Config struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// New builds a zap logger writing to stderr; stdout belongs to the
// response channel.
func New(cfg Config) (*zap.SugaredLogger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	if cfg.Encoding != "" {
		zcfg.Encoding = cfg.Encoding
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = level
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Nop discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
