package mcpservice

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ggoodman/mcp-greeter-go/mcp"
	"github.com/ggoodman/mcp-greeter-go/sessions"
)

// ErrInvalidLoggingLevel indicates the provided level is not one of the
// protocol-defined LoggingLevel values.
var ErrInvalidLoggingLevel = errors.New("invalid logging level")

// NewSlogLevelVarLogging returns a LoggingCapability that maps MCP levels onto
// lv. Every handler built from lv follows the client's choice.
func NewSlogLevelVarLogging(lv *slog.LevelVar) *SlogLevelVarLogging {
	return &SlogLevelVarLogging{lv: lv}
}

// SlogLevelVarLogging implements LoggingCapability over a slog.LevelVar.
type SlogLevelVarLogging struct{ lv *slog.LevelVar }

// ProvideLogging implements LoggingCapabilityProvider.
func (l *SlogLevelVarLogging) ProvideLogging(context.Context, sessions.Session) (LoggingCapability, bool, error) {
	if l == nil || l.lv == nil {
		return nil, false, nil
	}
	return l, true, nil
}

func (l *SlogLevelVarLogging) SetLevel(_ context.Context, _ sessions.Session, level mcp.LoggingLevel) error {
	slogLevel, err := SlogLevel(level)
	if err != nil {
		return err
	}
	l.lv.Set(slogLevel)
	return nil
}

// SlogLevel maps an MCP logging level to the nearest slog level. Notice maps
// to info; critical and above map to error.
func SlogLevel(level mcp.LoggingLevel) (slog.Level, error) {
	switch level {
	case mcp.LoggingLevelDebug:
		return slog.LevelDebug, nil
	case mcp.LoggingLevelInfo, mcp.LoggingLevelNotice:
		return slog.LevelInfo, nil
	case mcp.LoggingLevelWarning:
		return slog.LevelWarn, nil
	case mcp.LoggingLevelError, mcp.LoggingLevelCritical, mcp.LoggingLevelAlert, mcp.LoggingLevelEmergency:
		return slog.LevelError, nil
	}
	return 0, ErrInvalidLoggingLevel
}
