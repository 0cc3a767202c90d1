// Package log wraps zap for the rotating scan log and gookit/color for the
// console palette.
//
//	log.Init(log.Options{File: "./logs/hefest.log", Level: "info"})
//	log.Log().Info("scan started", zap.String("target", target))
package log

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultLogFile = "./logs/hefest.log"

// Options configures the file logger.
type Options struct {
	File       string
	Level      string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Stdout     bool
}

var (
	log = zap.NewNop()

	mu sync.RWMutex
)

// Init installs the file logger. Until it is called Log returns a no-op logger.
func Init(opt Options) error {
	if opt.File == "" {
		opt.File = DefaultLogFile
	}
	if opt.MaxSize <= 0 {
		opt.MaxSize = 60
	}
	if opt.MaxBackups <= 0 {
		opt.MaxBackups = 6
	}
	if opt.MaxAge <= 0 {
		opt.MaxAge = 60
	}
	level := zapcore.InfoLevel
	if opt.Level != "" {
		if err := level.UnmarshalText([]byte(opt.Level)); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(opt.File), 0755); err != nil {
		return err
	}

	core := zapcore.NewCore(getEncoder(), getLogWriter(opt), level)
	logger := zap.New(core, zap.AddCaller())

	mu.Lock()
	old := log
	log = logger
	mu.Unlock()
	_ = old.Sync()
	return nil
}

// Log returns the current logger.
func Log() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Sync flushes buffered entries.
func Sync() error {
	return Log().Sync()
}

func Debug(msg string, fields ...zap.Field) {
	Log().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Log().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Log().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Log().Error(msg, fields...)
}

func getEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.LineEnding = zapcore.DefaultLineEnding
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoderConfig.EncodeTime = timeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeName = zapcore.FullNameEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05"))
}

func getLogWriter(opt Options) zapcore.WriteSyncer {
	lumberJackLogger := &lumberjack.Logger{
		Filename:   opt.File,
		MaxSize:    opt.MaxSize,
		MaxBackups: opt.MaxBackups,
		MaxAge:     opt.MaxAge,
		Compress:   false,
	}
	if opt.Stdout {
		return zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout), zapcore.AddSync(lumberJackLogger))
	}
	return zapcore.AddSync(lumberJackLogger)
}
