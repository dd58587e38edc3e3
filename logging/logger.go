package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/discord-votebot/config"
)

// Logger is the process-wide sugared logger. InitLogger must be called once
// before it is used; packages only ever call Logger.Infof/Errorf and friends.
var Logger *zap.SugaredLogger

func init() {
	// default console logger so tests and tools work without InitLogger
	Logger = newConsoleLogger(zapcore.InfoLevel)
}

func InitLogger(cfg *config.LogConfig) {
	level := parseLevel(cfg.Level)

	cores := make([]zapcore.Core, 0, 2)
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.UseConsoleLogger {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.Lock(os.Stdout),
			level,
		))
	}
	if cfg.UseFileLogger {
		writer := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxFileSizeInMB,
			MaxBackups: cfg.MaxBackupsOfLogFiles,
			MaxAge:     cfg.MaxAgeToRetainLogFilesInDays,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(writer),
			level,
		))
	}
	if len(cores) == 0 {
		Logger = newConsoleLogger(level)
		return
	}

	Logger = zap.New(zapcore.NewTee(cores...)).Sugar()
}

func newConsoleLogger(level zapcore.Level) *zap.SugaredLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		level,
	)
	return zap.New(core).Sugar()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
