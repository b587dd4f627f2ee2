package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"serialflash/internal/domain/ports"
)

// ZeroLogger реализует интерфейс ports.Logger поверх zerolog.
type ZeroLogger struct {
	logger zerolog.Logger
}

// New создает логгер, пишущий человекочитаемые строки в w.
func New(w io.Writer, debug bool) ports.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return &ZeroLogger{logger: zl}
}

// NewStderr создает логгер для stderr.
func NewStderr(debug bool) ports.Logger {
	return New(os.Stderr, debug)
}

// Nop возвращает логгер, который ничего не выводит.
func Nop() ports.Logger {
	return &ZeroLogger{logger: zerolog.Nop()}
}

// Debug выводит отладочную информацию.
func (l *ZeroLogger) Debug(msg string, args ...interface{}) {
	l.logger.Debug().Msgf(msg, args...)
}

// Info выводит информационные сообщения.
func (l *ZeroLogger) Info(msg string, args ...interface{}) {
	l.logger.Info().Msgf(msg, args...)
}

// Warn выводит предупреждения.
func (l *ZeroLogger) Warn(msg string, args ...interface{}) {
	l.logger.Warn().Msgf(msg, args...)
}

// Error выводит ошибки.
func (l *ZeroLogger) Error(msg string, args ...interface{}) {
	l.logger.Error().Msgf(msg, args...)
}

// Fatal выводит критические ошибки и завершает программу.
func (l *ZeroLogger) Fatal(msg string, args ...interface{}) {
	l.logger.Fatal().Msgf(msg, args...)
}

// Named возвращает логгер с полем component.
func (l *ZeroLogger) Named(component string) ports.Logger {
	return &ZeroLogger{logger: l.logger.With().Str("component", component).Logger()}
}
