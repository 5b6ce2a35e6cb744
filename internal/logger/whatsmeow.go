package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	waLog "go.mau.fi/whatsmeow/util/log"
)

type waLogger struct {
	log *slog.Logger
	min slog.Level
}

// Whatsmeow adapts a slog logger to whatsmeow's logger interface. Records
// below minLevel (DEBUG, INFO, WARN or ERROR) are dropped before formatting.
func Whatsmeow(log *slog.Logger, module, minLevel string) waLog.Logger {
	return &waLogger{log: log.With("component", "whatsmeow", "module", module), min: ParseLevel(strings.ToLower(minLevel))}
}

func (l *waLogger) logf(level slog.Level, msg string, args ...any) {
	if level < l.min {
		return
	}
	l.log.Log(context.Background(), level, fmt.Sprintf(msg, args...))
}

func (l *waLogger) Errorf(msg string, args ...any) { l.logf(slog.LevelError, msg, args...) }
func (l *waLogger) Warnf(msg string, args ...any)  { l.logf(slog.LevelWarn, msg, args...) }
func (l *waLogger) Infof(msg string, args ...any)  { l.logf(slog.LevelInfo, msg, args...) }
func (l *waLogger) Debugf(msg string, args ...any) { l.logf(slog.LevelDebug, msg, args...) }

func (l *waLogger) Sub(module string) waLog.Logger {
	return &waLogger{log: l.log.With("sub", module), min: l.min}
}
