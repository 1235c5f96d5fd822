package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger — общий интерфейс логирования приложения.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(err error, format string, args ...any)
}

// SlogLogger реализует Logger поверх log/slog (JSON в stdout).
type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger() *SlogLogger {
	return NewSlogLoggerWithLevel(levelFromEnv())
}

func NewSlogLoggerWithLevel(level string) *SlogLogger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseSlogLevel(level)})
	return &SlogLogger{l: slog.New(handler)}
}

func (s *SlogLogger) Debugf(format string, args ...any) {
	s.l.Debug(fmt.Sprintf(format, args...))
}

func (s *SlogLogger) Infof(format string, args ...any) {
	s.l.Info(fmt.Sprintf(format, args...))
}

func (s *SlogLogger) Warnf(format string, args ...any) {
	s.l.Warn(fmt.Sprintf(format, args...))
}

func (s *SlogLogger) Errorf(err error, format string, args ...any) {
	s.l.LogAttrs(context.Background(), slog.LevelError, fmt.Sprintf(format, args...), slog.Any("error", err))
}

// ZapLogger реализует Logger поверх go.uber.org/zap.
type ZapLogger struct {
	l *zap.SugaredLogger
}

// NewZapLogger создаёт production-логгер zap с уровнем из LOG_LEVEL.
func NewZapLogger() (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseZapLevel(levelFromEnv()))

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return wrapZap(l), nil
}

func wrapZap(l *zap.Logger) *ZapLogger {
	return &ZapLogger{l: l.Sugar()}
}

func (z *ZapLogger) Debugf(format string, args ...any) {
	z.l.Debugf(format, args...)
}

func (z *ZapLogger) Infof(format string, args ...any) {
	z.l.Infof(format, args...)
}

func (z *ZapLogger) Warnf(format string, args ...any) {
	z.l.Warnf(format, args...)
}

func (z *ZapLogger) Errorf(err error, format string, args ...any) {
	z.l.Errorw(fmt.Sprintf(format, args...), zap.Error(err))
}

// Sync сбрасывает буферы zap.
func (z *ZapLogger) Sync() error {
	return z.l.Sync()
}

// New выбирает реализацию по имени бэкенда: "zap" или "slog" (по умолчанию).
func New(backend string) (Logger, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "zap":
		return NewZapLogger()
	case "", "slog":
		return NewSlogLogger(), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}

// NewNop возвращает логгер, который ничего не пишет.
func NewNop() Logger {
	return wrapZap(zap.NewNop())
}

func levelFromEnv() string {
	return os.Getenv("LOG_LEVEL")
}

func parseSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseZapLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
