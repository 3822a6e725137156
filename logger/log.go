// Package logger provides structured, leveled logging for the scheduler core
// and its backend adapters. It wraps logrus so that every component logs in
// the same shape, whether it's the registry reporting the backend it
// selected or the SLURM adapter reporting an unknown accounting state.
package logger

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var formatter = &textFormatter{
	DisableTimestamp: false,
	FullTimestamp:    true,
}

func init() {
	logrus.SetFormatter(formatter)
	logrus.SetLevel(logrus.InfoLevel)
}

// Logger is the logging interface used throughout the module.
type Logger interface {
	Debug(string, ...interface{})
	Info(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	WithFields(...interface{}) Logger
}

type logger struct {
	log *logrus.Entry
}

// New returns a new Logger namespaced under ns, with optional key/value
// fields attached to every message it writes.
//
//	log := logger.New("slurm", "priority", 0)
func New(ns string, args ...interface{}) Logger {
	f := fields(args...)
	f["ns"] = ns
	return &logger{logrus.WithFields(f)}
}

// Debug logs a debug message. After the message, arguments are key/value
// pairs written as structured fields.
func (l *logger) Debug(msg string, args ...interface{}) {
	defer recoverLogErr()
	l.log.WithFields(fields(args...)).Debug(msg)
}

// Info logs an info message.
func (l *logger) Info(msg string, args ...interface{}) {
	defer recoverLogErr()
	l.log.WithFields(fields(args...)).Info(msg)
}

// Warn logs a warning message, used for non-fatal observations such as an
// unrecognized backend state token or a job that couldn't be reconciled.
func (l *logger) Warn(msg string, args ...interface{}) {
	defer recoverLogErr()
	l.log.WithFields(fields(args...)).Warn(msg)
}

// Error logs an error message.
//
// Error has a single-argument shortcut for the common case of logging a
// plain error value:
//
//	log.Error("submission failed", err)
func (l *logger) Error(msg string, args ...interface{}) {
	defer recoverLogErr()
	var f map[string]interface{}
	if len(args) == 1 {
		f = fields("error", args[0])
	} else {
		f = fields(args...)
	}
	l.log.WithFields(f).Error(msg)
}

// WithFields returns a child Logger with the given fields attached to every
// subsequent message.
func (l *logger) WithFields(args ...interface{}) Logger {
	defer recoverLogErr()
	return &logger{l.log.WithFields(fields(args...))}
}

var root = New("sched")

// Debug logs to the package-level root logger.
func Debug(msg string, args ...interface{}) { root.Debug(msg, args...) }

// Info logs to the package-level root logger.
func Info(msg string, args ...interface{}) { root.Info(msg, args...) }

// Warn logs to the package-level root logger.
func Warn(msg string, args ...interface{}) { root.Warn(msg, args...) }

// Error logs to the package-level root logger.
func Error(msg string, args ...interface{}) { root.Error(msg, args...) }

// SetLevel sets the minimum level of logging.
func SetLevel(l string) {
	switch strings.ToLower(l) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// SetOutput sets the output writer for all loggers.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// Discard configures the logger to discard all output. Useful in tests.
func Discard() {
	logrus.SetOutput(ioutil.Discard)
}

// ForceColors forces colored text output even when the log output isn't a
// tty.
func ForceColors() {
	formatter.ForceColors = true
}

// PrintSimpleError writes a red "ERROR:"-prefixed message to stderr,
// independent of the structured logger's level and output settings. Used
// by command entry points to report a fatal error right before exiting
// non-zero.
func PrintSimpleError(err error) {
	fmt.Fprintf(os.Stderr, "\x1b[31mERROR:\x1b[0m %s\n", err.Error())
}

// UseJSON switches the root formatter to line-delimited JSON.
func UseJSON() {
	logrus.SetFormatter(&jsonFormatter{})
}

func recoverLogErr() {
	if r := recover(); r != nil {
		fmt.Println("recovered from logging panic:", r)
	}
}

func fields(args ...interface{}) map[string]interface{} {
	f := make(map[string]interface{}, len(args)/2)
	if len(args) == 1 {
		f["unknown"] = args[0]
		return f
	}
	for i := 0; i < len(args); i += 2 {
		k, ok := args[i].(string)
		if !ok {
			k = fmt.Sprintf("%v", args[i])
		}
		f[k] = args[i+1]
	}
	if len(args)%2 != 0 {
		f["unknown"] = args[len(args)-1]
	}
	return f
}
