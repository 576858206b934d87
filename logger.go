package esmtpd

import (
	"fmt"
	"log"
)

// Logger is the interface all Server loggers must satisfy. The *Conn
// argument can be nil for messages emitted outside any client connection,
// for example configuration warnings.
type Logger interface {
	Tracef(c *Conn, format string, args ...any)
	Debugf(c *Conn, format string, args ...any)
	Infof(c *Conn, format string, args ...any)
	Warnf(c *Conn, format string, args ...any)
	Errorf(c *Conn, format string, args ...any)
	Fatalf(c *Conn, format string, args ...any)
}

// LoggerLevel describes logging severity the way JournalD numbers it, see
// https://github.com/coreos/go-systemd/blob/main/journal/journal.go
type LoggerLevel uint8

// TraceLevel is used for raw SMTP protocol data being sent and received.
const TraceLevel LoggerLevel = 8

// DebugLevel is used for information that is diagnostically helpful to
// people beyond developers, like sysadmins operating the server.
const DebugLevel LoggerLevel = 7

// InfoLevel is used for generally useful information: connections being
// served, messages accepted, configuration assumptions.
const InfoLevel LoggerLevel = 6

// WarnLevel is used for oddities the server recovers from automatically.
const WarnLevel LoggerLevel = 4

// ErrorLevel is used for errors fatal to one operation but not the service.
const ErrorLevel LoggerLevel = 3

// FatalLevel is used for errors forcing a shutdown of the service.
const FatalLevel LoggerLevel = 2

// DefaultLogger is the logger used when Server.Logger is left empty, it
// writes through the standard library logger https://pkg.go.dev/log
type DefaultLogger struct {
	*log.Logger
	Level LoggerLevel
}

func connID(c *Conn) string {
	if c == nil {
		return "-"
	}
	return c.ID
}

// Tracef sends TraceLevel message
func (d *DefaultLogger) Tracef(c *Conn, format string, args ...any) {
	if d.Level >= TraceLevel {
		d.Printf("TRACE [%s]: %s", connID(c), fmt.Sprintf(format, args...))
	}
}

// Debugf sends DebugLevel message
func (d *DefaultLogger) Debugf(c *Conn, format string, args ...any) {
	if d.Level >= DebugLevel {
		d.Printf("DEBUG [%s]: %s", connID(c), fmt.Sprintf(format, args...))
	}
}

// Infof sends InfoLevel message
func (d *DefaultLogger) Infof(c *Conn, format string, args ...any) {
	if d.Level >= InfoLevel {
		d.Printf("INFO [%s]: %s", connID(c), fmt.Sprintf(format, args...))
	}
}

// Warnf sends WarnLevel message
func (d *DefaultLogger) Warnf(c *Conn, format string, args ...any) {
	if d.Level >= WarnLevel {
		d.Printf("WARN [%s]: %s", connID(c), fmt.Sprintf(format, args...))
	}
}

// Errorf sends ErrorLevel message
func (d *DefaultLogger) Errorf(c *Conn, format string, args ...any) {
	if d.Level >= ErrorLevel {
		d.Printf("ERROR [%s]: %s", connID(c), fmt.Sprintf(format, args...))
	}
}

// Fatalf sends FatalLevel message and stops the application with exit code 1
func (d *DefaultLogger) Fatalf(c *Conn, format string, args ...any) {
	d.Logger.Fatalf("FATAL [%s]: %s", connID(c), fmt.Sprintf(format, args...))
}
