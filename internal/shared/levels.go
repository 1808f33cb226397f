package shared

import "log/slog"

// Log levels beyond the slog defaults. Notice sits between info and warn,
// critical above error.
const (
	LevelNotice   = slog.Level(2)
	LevelCritical = slog.Level(12)
)

// LevelName renders the custom levels for handlers.
func LevelName(level slog.Level) string {
	switch level {
	case LevelNotice:
		return "NOTICE"
	case LevelCritical:
		return "CRITICAL"
	default:
		return level.String()
	}
}
