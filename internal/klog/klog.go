// Package klog is a tiny structured leveled logger over the serial port. It
// writes byte-at-a-time through the same style of busy-wait primitive the
// teacher's uartPutc/uartPuts pair uses, with no buffering. Each line is
// assembled as a Go string (the f-variants through fmt.Sprintf), so logging
// allocates from the Go runtime; it does not use the kernel heap.
package klog

import (
	"fmt"

	"github.com/kestrel-os/kestrel/internal/asm/amd64"
)

const (
	com1         = 0x3F8
	lineStatus   = com1 + 5
	txHoldingEmp = 1 << 5
)

// Level orders log severities, least to most severe.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "?????"
	}
}

// Sink receives each formatted log line, without its line terminator, in
// addition to the serial port. The compositor installs one once the window manager is up, the same
// way the teacher's bring-up switches from UART-only breadcrumbs to
// FramebufferPuts once the framebuffer initializes.
type Sink interface {
	WriteLine(line string)
}

// Logger writes leveled, serial-backed log lines and optionally mirrors
// them to an attached Sink (typically a scrollback console window).
type Logger struct {
	min  Level
	sink Sink
}

// New returns a Logger that serial-prints everything at or above min.
func New(min Level) *Logger {
	return &Logger{min: min}
}

// SetSink attaches (or detaches, with nil) the secondary log destination.
func (l *Logger) SetSink(sink Sink) {
	l.sink = sink
}

func (l *Logger) log(level Level, msg string) {
	if level < l.min {
		return
	}
	line := level.String() + ": " + msg
	putsSerial(line + "\r\n")
	if l.sink != nil {
		l.sink.WriteLine(line)
	}
}

func (l *Logger) Debug(msg string) { l.log(LevelDebug, msg) }
func (l *Logger) Info(msg string)  { l.log(LevelInfo, msg) }
func (l *Logger) Warn(msg string)  { l.log(LevelWarn, msg) }
func (l *Logger) Error(msg string) { l.log(LevelError, msg) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarn, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, fmt.Sprintf(format, args...)) }

func putc(c byte) {
	for amd64.Inb(lineStatus)&txHoldingEmp == 0 {
	}
	amd64.Outb(com1, c)
}

func putsSerial(s string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' && (i == 0 || s[i-1] != '\r') {
			putc('\r')
		}
		putc(s[i])
	}
}
