package common

import (
	"os"

	"github.com/sirupsen/logrus"
)

type LogLevel int32

const (
	DEBUG_INFO_DETAIL LogLevel = 1
	DEBUG_INFO        LogLevel = 2
	RDB_OP_FUNC_CALL  LogLevel = 4
	DEBUGGING         LogLevel = 8
	INFO              LogLevel = 16
	WARN              LogLevel = 32
	ERROR             LogLevel = 64
	FATAL             LogLevel = 128
)

var LogLevelSetting = INFO | WARN | ERROR | FATAL

// Logger is the sink of ShPrintf
var Logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.TraceLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableQuote: true})
	return l
}

func (lv LogLevel) logrusLevel() logrus.Level {
	switch {
	case lv&FATAL > 0, lv&ERROR > 0:
		return logrus.ErrorLevel
	case lv&WARN > 0:
		return logrus.WarnLevel
	case lv&INFO > 0:
		return logrus.InfoLevel
	case lv&(DEBUG_INFO|DEBUGGING|RDB_OP_FUNC_CALL) > 0:
		return logrus.DebugLevel
	}
	return logrus.TraceLevel
}

func ShPrintf(logLevel LogLevel, fmtStl string, a ...interface{}) {
	if logLevel&LogLevelSetting > 0 {
		Logger.Logf(logLevel.logrusLevel(), fmtStl, a...)
	}
}

// ParseLogLevel maps a config name to the set of enabled levels
func ParseLogLevel(name string) (LogLevel, bool) {
	switch name {
	case "detail":
		return DEBUG_INFO_DETAIL | DEBUG_INFO | RDB_OP_FUNC_CALL | DEBUGGING | INFO | WARN | ERROR | FATAL, true
	case "debug":
		return DEBUG_INFO | RDB_OP_FUNC_CALL | DEBUGGING | INFO | WARN | ERROR | FATAL, true
	case "info":
		return INFO | WARN | ERROR | FATAL, true
	case "warn":
		return WARN | ERROR | FATAL, true
	case "error":
		return ERROR | FATAL, true
	}
	return 0, false
}
