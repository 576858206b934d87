package esmtpd

import (
	"fmt"
	"net/textproto"
	"strings"
	"sync"
	"testing"
)

// expectReply sends a command line and checks both the reply code and the
// exact reply text
func expectReply(t *testing.T, c *textproto.Conn, code int, msg string, line string) {
	t.Helper()
	id, err := c.Cmd("%s", line)
	if err != nil {
		t.Fatalf("%s : while sending %s", err, line)
	}
	c.StartResponse(id)
	gotCode, gotMsg, err := c.ReadResponse(code)
	c.EndResponse(id)
	if err != nil {
		t.Errorf("%s : unexpected reply to %s", err, line)
		return
	}
	if gotCode != code || gotMsg != msg {
		t.Errorf("reply to %s was %d %q, expected %d %q",
			line, gotCode, gotMsg, code, msg)
	}
}

// recordingLogger keeps every formatted line so tests can inspect what
// ended up in the log
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (rl *recordingLogger) record(level string, c *Conn, format string, args ...any) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.lines = append(rl.lines, fmt.Sprintf("%s: %s %s", level, connID(c), fmt.Sprintf(format, args...)))
}

func (rl *recordingLogger) Tracef(c *Conn, format string, args ...any) {
	rl.record("TRACE", c, format, args...)
}

func (rl *recordingLogger) Debugf(c *Conn, format string, args ...any) {
	rl.record("DEBUG", c, format, args...)
}

func (rl *recordingLogger) Infof(c *Conn, format string, args ...any) {
	rl.record("INFO", c, format, args...)
}

func (rl *recordingLogger) Warnf(c *Conn, format string, args ...any) {
	rl.record("WARN", c, format, args...)
}

func (rl *recordingLogger) Errorf(c *Conn, format string, args ...any) {
	rl.record("ERROR", c, format, args...)
}

func (rl *recordingLogger) Fatalf(c *Conn, format string, args ...any) {
	panic("it is bad")
}

func (rl *recordingLogger) contains(needle string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for i := range rl.lines {
		if strings.Contains(rl.lines[i], needle) {
			return true
		}
	}
	return false
}

