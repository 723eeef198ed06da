package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tributai/tributai-migrate/internal/config"
)

// Setup initializes a logger writing to stdout and to a daily file in
// directory. The returned closer releases the file.
func Setup(level, directory string) (*slog.Logger, io.Closer, error) {
	if directory == "" {
		directory = config.ExpandHome("~/.tributai/logs/")
	} else {
		directory = config.ExpandHome(directory)
	}

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	file, err := os.OpenFile(FilePath(directory, time.Now()), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	return New(io.MultiWriter(os.Stdout, file), level), file, nil
}

// New builds a text logger over w.
func New(w io.Writer, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler).With("app", config.AppName)
}

// FilePath returns the log file used on day t.
func FilePath(directory string, t time.Time) string {
	return filepath.Join(directory, fmt.Sprintf("%s-%s.log", config.AppName, t.Format("2006-01-02")))
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
