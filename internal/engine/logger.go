package engine

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// level distinguishes routine lifecycle logging (debug) from logging that
// reports a degraded feature (warn) or a failure (error), per SPEC_FULL.md
// §4.5.
type level int

const (
	levelDebug level = iota
	levelWarn
	levelError
)

// logLine is one buffered, not-yet-formatted log entry: the severity, the
// operation segment it belongs to (an operation name or correlation id),
// and the message itself.
type logLine struct {
	level   level
	segment string
	message string
}

// Logger is a channel-buffered wrapper around logrus, adapted from the
// teacher's own Logger type (internal/grits/logger.go) but leveled: callers
// distinguish routine lifecycle events from failures instead of funneling
// everything through a single undifferentiated Info line. A nil-safe zero
// value (via NewLogger, un-started) falls back to writing straight to
// stderr, so StorageEngine never has to special-case a missing logger.
type Logger struct {
	logger       *logrus.Logger
	messageChan  chan logLine
	shutdownChan chan error
	mux          sync.RWMutex
}

const logBufferSize = 1024

func NewLogger() *Logger {
	return &Logger{
		messageChan:  make(chan logLine, logBufferSize),
		shutdownChan: make(chan error),
	}
}

// Log records a routine lifecycle event (lock acquired/released,
// defragmentation complete) at debug level. StorageEngine's read- and
// write-locked sections use it for their entry/exit lines.
func (l *Logger) Log(segmentID, message string) {
	l.enqueue(levelDebug, segmentID, message)
}

// Warn records a condition that degrades a feature without aborting the
// operation it was annotating (e.g. the backing-file watcher failing to
// start, or an externally observed file removal).
func (l *Logger) Warn(segmentID, message string) {
	l.enqueue(levelWarn, segmentID, message)
}

// Error records a failure that aborted the operation it was logging, such
// as a defragmentation pass that could not complete.
func (l *Logger) Error(segmentID, message string) {
	l.enqueue(levelError, segmentID, message)
}

func (l *Logger) enqueue(lvl level, segmentID, message string) {
	if l == nil {
		fmt.Fprintln(os.Stderr, message)
		return
	}

	l.mux.RLock()
	if l.logger == nil {
		l.mux.RUnlock()
		fmt.Fprintln(os.Stderr, message)
		return
	}
	l.mux.RUnlock()

	l.messageChan <- logLine{level: lvl, segment: segmentID, message: message}
}

func (l *Logger) Start() {
	l.mux.Lock()
	defer l.mux.Unlock()

	if l.logger != nil {
		panic("Logger already started")
	}

	l.logger = logrus.New()
	l.logger.SetLevel(logrus.DebugLevel)
	go writeLogEntries(l, l.logger)
}

func (l *Logger) Stop() {
	l.mux.Lock()
	defer l.mux.Unlock()

	if l.logger == nil {
		panic("Logger not started or already stopped")
	}

	close(l.messageChan)
	l.logger = nil
	<-l.shutdownChan
}

func writeLogEntries(outer *Logger, inner *logrus.Logger) {
	for entry := range outer.messageChan {
		line := inner.WithField("segment", entry.segment)
		switch entry.level {
		case levelWarn:
			line.Warn(entry.message)
		case levelError:
			line.Error(entry.message)
		default:
			line.Debug(entry.message)
		}
	}
	outer.shutdownChan <- nil
}
