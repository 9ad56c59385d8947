// Package logging configures the process logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/awn-app/awn/pkg/config"
	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// NewLogger returns a logger writing to w. Without an explicit format a
// terminal gets text and anything else gets JSON.
func NewLogger(cfg config.LogConfig, w io.Writer) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})

	level, err := log.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	format := strings.ToLower(cfg.Format)
	if format == "" && !isTerminal(w) {
		format = "json"
	}
	switch format {
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(log.LogfmtFormatter)
	default:
		logger.SetFormatter(log.TextFormatter)
	}
	return logger
}

// Setup builds the stderr logger and makes it the package default.
func Setup(cfg config.LogConfig, verbose bool) *log.Logger {
	logger := NewLogger(cfg, os.Stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
		logger.SetReportCaller(true)
	}
	log.SetDefault(logger)
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
