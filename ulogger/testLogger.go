package ulogger

// TestLogger discards everything. Use it where a test needs a Logger but not its output.
type TestLogger struct{}

func (l TestLogger) LogLevel() int {
	return 0
}

func (l TestLogger) SetLogLevel(_ string) {}

func (l TestLogger) Debugf(_ string, _ ...interface{}) {}

func (l TestLogger) Infof(_ string, _ ...interface{}) {}

func (l TestLogger) Warnf(_ string, _ ...interface{}) {}

func (l TestLogger) Errorf(_ string, _ ...interface{}) {}

func (l TestLogger) Fatalf(_ string, _ ...interface{}) {}

func (l TestLogger) New(_ string, _ ...Option) Logger {
	return l
}

func (l TestLogger) Duplicate(_ ...Option) Logger {
	return l
}
