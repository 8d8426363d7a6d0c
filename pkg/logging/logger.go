package logging

const (
	BaseDataDir = "data"
	LogsDir     = "logs"
)

// ProcessName identifies which binary a log line came from; it also names
// the per-process log directory under data/logs.
type ProcessName string

const (
	GatewayProcess   ProcessName = "gateway"
	CableTailProcess ProcessName = "cabletail"
	TestProcess      ProcessName = "test"
)

// LoggerConfig configures a service logger.
type LoggerConfig struct {
	ProcessName   ProcessName
	IsDevelopment bool
}

// Logger is the logging interface used across all services.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Fatal(msg string, keysAndValues ...interface{})
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
	With(tags ...interface{}) Logger
	WithTraceID(traceID string) Logger
}
