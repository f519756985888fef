package common

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

// LoggerNames lists every named logger used by the driver and the oracle server
var LoggerNames = []string{"rpc", "client", "server", "transport/rpc", "transport/http", "transport/grpc"}

// levelTags are the labels written in front of every line
var levelTags = map[logger.LogLevel]string{
	logger.CRITICAL: "CRIT",
	logger.ERROR:    "ERROR",
	logger.WARNING:  "WARN",
	logger.INFO:     "INFO",
	logger.DEBUG:    "DEBUG",
}

// --------------------------------------------------------------------------
// Driver Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// driverLogger writes "<LEVEL> | <name> | <message>" lines to stderr
type driverLogger struct {
	name  string
	level logger.LogLevel
	out   *log.Logger
}

func (l *driverLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *driverLogger) Debugf(format string, args ...interface{}) {
	l.write(logger.DEBUG, format, args)
}

func (l *driverLogger) Infof(format string, args ...interface{}) {
	l.write(logger.INFO, format, args)
}

func (l *driverLogger) Warningf(format string, args ...interface{}) {
	l.write(logger.WARNING, format, args)
}

func (l *driverLogger) Errorf(format string, args ...interface{}) {
	l.write(logger.ERROR, format, args)
}

func (l *driverLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.write(logger.CRITICAL, "%s", []interface{}{msg})
	panic(msg)
}

func (l *driverLogger) write(level logger.LogLevel, format string, args []interface{}) {
	if level > l.level {
		return
	}
	l.out.Printf("%-5s | %-14s | %s", levelTags[level], l.name, fmt.Sprintf(format, args...))
}

// CreateLogger implements the dragonboat logger.Factory signature
func CreateLogger(pkgName string) logger.ILogger {
	return &driverLogger{
		name:  pkgName,
		level: logger.INFO,
		out:   log.New(os.Stderr, "", log.Ldate|log.Ltime),
	}
}

// --------------------------------------------------------------------------
// Levels
// --------------------------------------------------------------------------

// ParseLogLevel converts a level name to a logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, NewError(ErrKindInvalidArgument, fmt.Sprintf("invalid log level: %s. must be one of debug, info, warn, error", level))
	}
}

// LogLevels is a default level plus per logger overrides
type LogLevels struct {
	Default   logger.LogLevel
	Overrides map[string]logger.LogLevel
}

// For returns the level of the named logger
func (l LogLevels) For(name string) logger.LogLevel {
	if lvl, ok := l.Overrides[name]; ok {
		return lvl
	}
	return l.Default
}

// ParseLogLevels parses a comma-separated list such as "warn,client=debug".
// A bare entry sets the default, name=level entries override single loggers.
// The default is info if no bare entry is given.
func ParseLogLevels(spec string) (LogLevels, error) {
	levels := LogLevels{Default: logger.INFO, Overrides: map[string]logger.LogLevel{}}

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, lvlStr, scoped := strings.Cut(entry, "=")
		if !scoped {
			lvl, err := ParseLogLevel(entry)
			if err != nil {
				return LogLevels{}, err
			}
			levels.Default = lvl
			continue
		}

		name = strings.TrimSpace(name)
		if !knownLogger(name) {
			return LogLevels{}, NewError(ErrKindInvalidArgument, fmt.Sprintf("unknown logger %q. must be one of %s", name, strings.Join(LoggerNames, ", ")))
		}
		lvl, err := ParseLogLevel(lvlStr)
		if err != nil {
			return LogLevels{}, err
		}
		levels.Overrides[name] = lvl
	}
	return levels, nil
}

func knownLogger(name string) bool {
	for _, n := range LoggerNames {
		if n == name {
			return true
		}
	}
	return false
}

// InitLoggers installs the driver logger factory and applies the levels of
// spec (see ParseLogLevels) to all named loggers
func InitLoggers(spec string) error {
	levels, err := ParseLogLevels(spec)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(levels.For(name))
	}
	return nil
}
