package log

// Logger receives protocol events as sessions produce them. Use
// NoopLogger to disable capture.
type Logger interface {
	// Log records one protocol event. Implementations must be safe for
	// concurrent use and should return quickly; Log is called from
	// session worker goroutines.
	Log(event Event)
}

// NoopLogger discards all events. The zero value is usable.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// MultiLogger sends events to multiple loggers.
// Useful when you want both console output (via SlogAdapter)
// and file output (via FileLogger) simultaneously.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger that sends events to all provided loggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log sends the event to all configured loggers.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Logger = NoopLogger{}
	_ Logger = (*MultiLogger)(nil)
)
