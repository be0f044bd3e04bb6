package ulogger

import (
	"fmt"
	"sync"
	"sync/atomic"
)

type TestingT interface {
	Errorf(format string, args ...interface{})
	FailNow()
	Logf(format string, args ...any)
}

type tHelper = interface {
	Helper()
}

// ErrorTestLogger drops debug, info and warn output and records every error and fatal
// line so a test can assert that a code path logged no errors.
type ErrorTestLogger struct {
	t        TestingT
	mu       sync.Mutex
	errors   []string
	shutdown atomic.Bool // Prevents logging after test cleanup
}

func NewErrorTestLogger(t TestingT) *ErrorTestLogger {
	return &ErrorTestLogger{t: t}
}

// Shutdown marks the logger as shutdown, preventing further access to testing.T.
// Call it before test cleanup when goroutines may still log.
func (l *ErrorTestLogger) Shutdown() {
	l.shutdown.Store(true)
}

// Errors returns a copy of the recorded error and fatal lines.
func (l *ErrorTestLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.errors))
	copy(out, l.errors)

	return out
}

func (l *ErrorTestLogger) LogLevel() int {
	return 0
}

func (l *ErrorTestLogger) SetLogLevel(_ string) {}

func (l *ErrorTestLogger) New(_ string, _ ...Option) Logger {
	return l
}

func (l *ErrorTestLogger) Duplicate(_ ...Option) Logger {
	return l
}

func (l *ErrorTestLogger) Debugf(_ string, _ ...interface{}) {}

func (l *ErrorTestLogger) Infof(_ string, _ ...interface{}) {}

func (l *ErrorTestLogger) Warnf(_ string, _ ...interface{}) {}

func (l *ErrorTestLogger) Errorf(format string, args ...interface{}) {
	l.record("ERROR", format, args...)
}

func (l *ErrorTestLogger) Fatalf(format string, args ...interface{}) {
	l.record("FATAL", format, args...)
}

func (l *ErrorTestLogger) record(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()

	// Don't access testing.T if logger is shutdown (test is cleaning up)
	if l.shutdown.Load() {
		return
	}

	if h, ok := l.t.(tHelper); ok {
		h.Helper()
	}

	l.t.Logf("%s_LEVEL %s", level, msg)
}
