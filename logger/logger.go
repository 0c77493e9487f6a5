// Package logger
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// zap logger construction with size-rotated files and an optional stdout tee.

package logger

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type stdoutWriteSyncer struct{}

func (s stdoutWriteSyncer) Write(p []byte) (n int, err error) {
	return os.Stdout.Write(p)
}

func (s stdoutWriteSyncer) Sync() error {
	return nil
}

var levelMap = map[string]zapcore.Level{
	"debug":  zapcore.DebugLevel,
	"info":   zapcore.InfoLevel,
	"warn":   zapcore.WarnLevel,
	"error":  zapcore.ErrorLevel,
	"dpanic": zapcore.DPanicLevel,
	"panic":  zapcore.PanicLevel,
	"fatal":  zapcore.FatalLevel,
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(lvl string) zapcore.Level {
	if level, ok := levelMap[lvl]; ok {
		return level
	}
	return zapcore.InfoLevel
}

func TimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

// NewZapLogger builds a console-encoded logger writing to path/name, rotated
// at maxLogfileSize megabytes and kept for maxAge days. An empty path logs
// to stdout only.
func NewZapLogger(name string, path string, level string, maxLogfileSize int, maxAge int, enableLogStdout bool) *zap.Logger {
	var syncers []zapcore.WriteSyncer
	if path != "" {
		syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
			Filename:  filepath.Join(path, name),
			MaxSize:   maxLogfileSize,
			MaxAge:    maxAge,
			LocalTime: true,
		}))
	}
	if enableLogStdout || path == "" {
		syncers = append(syncers, stdoutWriteSyncer{})
	}

	encoder := zap.NewProductionEncoderConfig()
	encoder.EncodeTime = TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoder),
		zap.CombineWriteSyncers(syncers...),
		zap.NewAtomicLevelAt(ParseLevel(level)),
	)
	return zap.New(core, zap.AddCaller()).Named(name)
}

var (
	initOnce      sync.Once
	zapLogger     *zap.Logger
	sugaredLogger *zap.SugaredLogger
)

// InitLogger installs the process-wide logger. Only the first call has effect.
func InitLogger(logger *zap.Logger) {
	initOnce.Do(func() {
		zapLogger = logger
		sugaredLogger = zapLogger.Sugar()
	})
}

// GetLogger returns the process-wide logger, or nil before InitLogger.
func GetLogger() *zap.Logger {
	return zapLogger
}

func GetSugar() *zap.SugaredLogger {
	return sugaredLogger
}
