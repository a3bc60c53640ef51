package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging configures the global zerolog logger. When logDir is not empty
// every line is additionally written to a timestamped file inside it.
// The returned closer must be called on shutdown.
func SetupLogging(level string, logDir string) (io.Closer, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	var closer io.Closer = nopCloser{}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return closer, fmt.Errorf("error creating log dir: %w", err)
		}
		name := filepath.Join(logDir, fmt.Sprintf("%s.log", time.Now().Format(time.RFC3339)))
		logFile, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o666)
		if err != nil {
			return closer, fmt.Errorf("error opening file: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, logFile)
		closer = logFile
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ReadStringFromEnv returns the value of the environment variable name or an
// error if it is unset.
func ReadStringFromEnv(name string) (string, error) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("environment variable %s not set", name)
	}
	return value, nil
}
