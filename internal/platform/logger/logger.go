// Package logger provides structured logging for the game server.
// Every session transition and ledger write should be traceable through this.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger provides structured logging with context.
type Logger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// NewLogger creates a new logger instance.
func NewLogger() *Logger {
	return New(os.Stdout, os.Stderr)
}

// New creates a logger writing info and warnings to out and errors to errOut.
func New(out, errOut io.Writer) *Logger {
	return &Logger{
		infoLogger:  log.New(out, "[SIMON-INFO] ", log.Ldate|log.Ltime|log.Lshortfile),
		warnLogger:  log.New(out, "[SIMON-WARN] ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLogger: log.New(errOut, "[SIMON-ERROR] ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return New(io.Discard, io.Discard)
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.infoLogger.Output(2, msg)
}

// Infof logs a formatted informational message.
func (l *Logger) Infof(format string, args ...any) {
	l.infoLogger.Output(2, fmt.Sprintf(format, args...))
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.warnLogger.Output(2, msg)
}

// Warnf logs a formatted warning.
func (l *Logger) Warnf(format string, args ...any) {
	l.warnLogger.Output(2, fmt.Sprintf(format, args...))
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.errorLogger.Output(2, msg)
}

// Errorf logs a formatted error.
func (l *Logger) Errorf(format string, args ...any) {
	l.errorLogger.Output(2, fmt.Sprintf(format, args...))
}

// Event logs a specific game event, e.g. a phase change or a ledger append.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.infoLogger.Output(2, fmt.Sprintf("[EVENT:%s] Actor:%s | %s", eventType, actorID, details))
}
