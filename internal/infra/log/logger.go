package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options задаёт приёмники логов.
type Options struct {
	AppEnv string
	// Format: "json" или "console".
	Format string
	// File включает дополнительную запись в файл с ротацией.
	File string
}

// NewLogger создаёт настроенный zerolog. Closer закрывает файл логов.
func NewLogger(opts Options) (zerolog.Logger, io.Closer) {
	return New(os.Stdout, opts)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New пишет в out и, если задан File, в ротируемый файл.
func New(out io.Writer, opts Options) (zerolog.Logger, io.Closer) {
	level := zerolog.InfoLevel
	if opts.AppEnv == "dev" {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	if opts.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, rotator)
		closer = rotator
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(level), closer
}
