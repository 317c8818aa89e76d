package types

// Logger defines methods for structured logging.
//
// Compatible with slog-style and zap.SugaredLogger-style loggers.
// All methods accept key-value pairs for structured fields, for example:
//
//	logger.Debug("subscription opened", "identity", id, "listeners", 1)
type Logger interface {
	// Debug logs a message at DebugLevel.
	// Subscription lifecycle and page events are logged at this level.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at InfoLevel.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at WarnLevel.
	// Dropped deliveries and non-recommended configuration are logged at this level.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at ErrorLevel.
	Error(msg string, keysAndValues ...any)

	// Fatal logs a message at FatalLevel and calls os.Exit(1).
	//
	// The library itself never calls Fatal; it is part of the interface so that
	// the same logger can be shared with the hosting application.
	Fatal(msg string, keysAndValues ...any)
}
