package logging

import (
	"io"
	"log"
	"os"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

// MakeDefaultLoggers returns a Loggers instance configured with the relay's standard log format.
// Output goes to stdout, except Error level which goes to stderr. Debug level is disabled.
func MakeDefaultLoggers() ldlog.Loggers {
	return makeLoggers(os.Stdout, os.Stderr)
}

// ForComponent returns a copy of the loggers that prefixes every message with the component name.
func ForComponent(loggers ldlog.Loggers, component string) ldlog.Loggers {
	loggers.SetPrefix("[" + component + "]")
	return loggers
}

func makeLoggers(out, errOut io.Writer) ldlog.Loggers {
	loggers := ldlog.NewDefaultLoggers()
	loggers.SetBaseLogger(makeLog(out))
	loggers.SetBaseLoggerForLevel(ldlog.Error, makeLog(errOut))
	loggers.SetMinLevel(ldlog.Info)
	return loggers
}

func makeLog(w io.Writer) *log.Logger {
	return log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds)
}
