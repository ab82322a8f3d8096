package transport

import "fmt"

// Logger defines the logging surface the executor relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

// engineLogger feeds resty's debug output into Logger.
type engineLogger struct {
	log Logger
}

func (l engineLogger) Errorf(format string, v ...interface{}) {
	l.log.ErrorObj("http engine", "detail", fmt.Sprintf(format, v...))
}

func (l engineLogger) Warnf(format string, v ...interface{}) {
	l.log.WarnObj("http engine", "detail", fmt.Sprintf(format, v...))
}

func (l engineLogger) Debugf(format string, v ...interface{}) {
	l.log.DebugObj("http engine", "detail", fmt.Sprintf(format, v...))
}
