package config

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"io"
	"strings"
)

// NewLogger builds the root logger for the configured format and level
func NewLogger(w io.Writer, format, lvl string) log.Logger {
	sw := log.NewSyncWriter(w)

	var logger log.Logger
	if strings.ToLower(format) == "json" {
		logger = log.NewJSONLogger(sw)
	} else {
		logger = log.NewLogfmtLogger(sw)
	}
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	return level.NewFilter(logger, levelOption(lvl))
}

func levelOption(lvl string) level.Option {
	switch strings.ToLower(lvl) {
	case "debug":
		return level.AllowDebug()
	case "info":
		return level.AllowInfo()
	case "error":
		return level.AllowError()
	case "none":
		return level.AllowNone()
	default:
		return level.AllowWarn()
	}
}
