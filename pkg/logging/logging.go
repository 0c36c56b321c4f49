// Package logging wires zerolog for the CLI: a console writer for the
// terminal and a flat, line-capped run log that operators can tail.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var stderr = struct{ io.Writer }{os.Stderr}

func init() { //nolint:gochecknoinits // init with zerolog is idiomatic
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	useWriters(consoleWriter())
}

// Options configures the global logger for one process.
type Options struct {
	// Level is a zerolog level name ("trace" ... "fatal"). Empty means info.
	Level string

	// Path is the run log file. Empty disables file output.
	Path string

	// MaxLines is the cap applied to Path before the file is opened for
	// appending. Zero or negative disables trimming.
	MaxLines int
}

// Configure sets up the global logger. When opts.Path is set the file is
// first trimmed to its last opts.MaxLines lines, keeping the log readable as
// one small flat file across many runs.
func Configure(opts Options) error {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return errors.Wrapf(err, "unknown log level %q", opts.Level)
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	writers := []io.Writer{consoleWriter()}
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return errors.Wrap(err, "creating log directory")
		}
		if err := TrimToTail(opts.Path, opts.MaxLines); err != nil {
			return errors.Wrap(err, "rotating run log")
		}
		f, err := os.OpenFile(opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrap(err, "opening run log")
		}
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        f,
			NoColor:    true,
			TimeFormat: time.RFC3339,
		})
	}

	useWriters(writers...)
	return nil
}

func consoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        stderr,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		TimeFormat: "15:04:05",
	}
}

func useWriters(writers ...io.Writer) {
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

type tTesting interface {
	Log(args ...interface{})
	Logf(format string, args ...interface{})
	Helper()
	Cleanup(f func())
}

// ConfigureTestLogging routes log output through the test runner so that
// lines are attached to the test that emitted them.
func ConfigureTestLogging(t tTesting) {
	oldLogger := log.Logger
	oldContextLogger := zerolog.DefaultContextLogger
	log.Logger = zerolog.New(zerolog.NewConsoleWriter(zerolog.ConsoleTestWriter(t)))
	zerolog.DefaultContextLogger = &log.Logger
	t.Cleanup(func() {
		log.Logger = oldLogger
		zerolog.DefaultContextLogger = oldContextLogger
	})
}
