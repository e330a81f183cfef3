package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is the process-wide logger. Commands call Configure once at start up.
var Log zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	Log = New(os.Stdout, "info", "console")
}

// New builds a logger writing to w. format "json" emits one JSON object per
// line (what CloudWatch indexes); anything else is the console format.
func New(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if !strings.EqualFold(strings.TrimSpace(format), "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02 15:04:05", NoColor: true}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Configure replaces Log.
func Configure(level, format string) {
	Log = New(os.Stdout, level, format)
}
