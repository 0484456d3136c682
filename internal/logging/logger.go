// Package logging provides the leveled logger used across rentradar.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level. Unknown strings mean info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// FileOptions configures the optional rotated log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Logger writes leveled printf-style lines to the console and, when
// configured, to a size-rotated file.
type Logger struct {
	mu      sync.Mutex
	level   Level
	console *log.Logger
	file    *log.Logger
	closer  io.Closer
	color   bool
	now     func() time.Time
}

// New returns a logger writing to stderr at the given level.
func New(level Level) *Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter returns a logger writing uncolored lines to w.
func NewWithWriter(w io.Writer, level Level) *Logger {
	return &Logger{
		level:   level,
		console: log.New(w, "", 0),
		color:   w == os.Stderr || w == os.Stdout,
		now:     time.Now,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter(io.Discard, LevelError+1)
}

// WithFile adds a rotated log file. Lines in the file carry no color codes.
func (l *Logger) WithFile(opts FileOptions) *Logger {
	if opts.Path == "" {
		return l
	}
	lj := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	l.mu.Lock()
	l.file = log.New(lj, "", 0)
	l.closer = lj
	l.mu.Unlock()
	return l
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer, l.file = nil, nil
	return err
}

func (l *Logger) Debug(format string, args ...any) { l.write(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.write(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.write(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.write(LevelError, format, args...) }

var labels = map[Level]struct{ name, color string }{
	LevelDebug: {"DEBUG", "\033[36m"},
	LevelInfo:  {"INFO ", "\033[32m"},
	LevelWarn:  {"WARN ", "\033[33m"},
	LevelError: {"ERROR", "\033[31m"},
}

func (l *Logger) write(level Level, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	ts := l.now().Format("2006-01-02 15:04:05")
	lb := labels[level]

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.color {
		l.console.Printf("[%s] %s%s\033[0m %s", ts, lb.color, lb.name, msg)
	} else {
		l.console.Printf("[%s] %s %s", ts, lb.name, msg)
	}
	if l.file != nil {
		l.file.Printf("[%s] %s %s", ts, lb.name, msg)
	}
}
