package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const logFile = "cdnheaders.log"

// Setup configures the global zerolog logger. Outside prod it writes to
// stdout through the console writer; in prod it appends JSON lines to
// logs/cdnheaders.log and falls back to stdout when the file can't be opened.
// The returned func closes the log file.
func Setup(env, level string) (zerolog.Logger, func()) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	if env != "prod" {
		return install(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}), func() {}
	}

	logDir := "logs"
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		l := install(os.Stdout)
		l.Warn().Err(err).Msg("failed to create log dir, fallback to stdout")
		return l, func() {}
	}

	f, err := os.OpenFile(filepath.Join(logDir, logFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l := install(os.Stdout)
		l.Warn().Err(err).Msg("failed to open log file, fallback to stdout")
		return l, func() {}
	}

	return install(f), func() { _ = f.Close() }
}

func install(w io.Writer) zerolog.Logger {
	l := zerolog.New(w).With().Timestamp().Logger()
	log.Logger = l
	return l
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a child of the global logger tagged with component.
func New(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
