package esmtpd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// commands a client may issue before STARTTLS when the server enforces
// encryption, RFC 3207 part 4
var allowedBeforeSTARTTLS = map[string]bool{
	"NOOP":     true,
	"EHLO":     true,
	"STARTTLS": true,
	"QUIT":     true,
}

// Conn handles all ESMTP protocol interactions with one remote client.
type Conn struct {
	// ID is unique connection identificator
	ID string `json:"id"`
	// StartedAt depicts moment when connection was accepted
	StartedAt time.Time

	// ServerName depicts how our ESMTP server names itself
	ServerName string

	// Session survives RSET and MAIL transactions, it is replaced only
	// by a successful STARTTLS handshake
	Session *Session
	// Envelope is the mail transaction being assembled, reset by
	// HELO/EHLO, RSET and a finished DATA
	Envelope *Envelope

	// Logger is logging system inherited from server
	Logger Logger
	// Span traces the whole connection
	Span trace.Span

	ctx    context.Context
	cancel context.CancelFunc

	server *Server
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	lines  *lineReader

	// callBudget tracks how many invocations each command has left,
	// nil when enforcement is off
	callBudget map[string]int
	// bogusBudget is how many unknown commands are still tolerated
	bogusBudget int
	// mailSizeGrowth extends the MAIL command line ceiling, grown by
	// the extensions EHLO advertises
	mailSizeGrowth int

	closeOnce sync.Once
}

// Context returns connection context, which is canceled when connection is closed
func (c *Conn) Context() context.Context {
	if c.ctx == nil {
		return context.TODO()
	}
	return c.ctx
}

func (c *Conn) serve() {
	defer c.close()
	defer func() {
		if r := recover(); r != nil {
			c.LogError(fmt.Errorf("%v", r), "panic while serving connection")
			c.push("421 4.3.0 Internal server error")
		}
	}()
	c.welcome()
	for {
		c.conn.SetReadDeadline(time.Now().Add(c.server.ReadTimeout))
		raw, err := c.lines.ReadCommandLine()
		if err != nil {
			if err == errLineTooLong {
				c.push("500 Command line too long")
				continue
			}
			c.LogDebug("%s : while reading command", err)
			return
		}
		line := string(raw)
		c.LogTrace("received: %s", sanitizeLine(line))
		if line == "" {
			c.push("500 Error: bad syntax")
			continue
		}
		verb, arg, _ := strings.Cut(line, " ")
		verb = strings.ToUpper(verb)
		if !isASCII(verb) {
			c.push("500 Error: bad syntax")
			continue
		}
		arg = strings.TrimSpace(arg)
		if arg != "" && !c.server.EnableSMTPUTF8 && !isASCII(arg) {
			c.push("500 Error: strict ASCII mode")
			continue
		}
		if len(raw) > c.commandSizeLimit(verb) {
			c.push("500 Command line too long")
			continue
		}
		if c.server.ForceTLS && !c.Session.Encrypted && !allowedBeforeSTARTTLS[verb] {
			c.push("530 Must issue a STARTTLS command first")
			continue
		}
		if c.callBudget != nil {
			budget, seen := c.callBudget[verb]
			if !seen {
				budget = c.server.callLimitFor(verb)
			}
			if budget < 1 {
				c.LogWarn("over call limit for %s", verb)
				c.push(fmt.Sprintf("421 4.7.0 %s sent too many times", verb))
				return
			}
			c.callBudget[verb] = budget - 1
		}
		spec, known := c.server.commands[verb]
		if !known {
			c.LogWarn("unrecognised command: %s", verb)
			c.bogusBudget--
			if c.bogusBudget < 1 {
				c.LogWarn("too many bogus commands")
				c.push("502 5.5.1 Too many unrecognized commands, goodbye.")
				return
			}
			c.push(fmt.Sprintf("500 Error: command %q not recognized", verb))
			continue
		}
		c.server.metrics.commandsTotal.WithLabelValues(verb).Inc()
		spec.handler(c, arg)
	}
}

func (c *Conn) reject() {
	c.server.metrics.connectionsRejected.Inc()
	c.push("421 4.3.2 Too busy, try again later")
	c.close()
}

func (c *Conn) welcome() {
	c.push(fmt.Sprintf("220 %s %s", c.ServerName, c.server.Ident))
}

// commandSizeLimit is the longest command line accepted for the verb. The
// base limit from RFC 5321 4.5.3.1.4 applies everywhere, MAIL gets the
// room the advertised extensions demand once EHLO negotiated them.
func (c *Conn) commandSizeLimit(verb string) int {
	if c.Session.ExtendedSMTP && verb == "MAIL" {
		return commandSizeLimit + c.mailSizeGrowth
	}
	return commandSizeLimit
}

func (srv *Server) callLimitFor(verb string) int {
	if limit, found := srv.CommandCallLimit[verb]; found {
		return limit
	}
	if limit, found := srv.CommandCallLimit["*"]; found {
		return limit
	}
	return DefaultCallLimit
}

// checkHeloNeeded replies 503 when the client skipped its greeting. helo
// names the greeting the reply demands, HELO or EHLO.
func (c *Conn) checkHeloNeeded(helo string) bool {
	if c.Session.HostName == "" {
		c.push(fmt.Sprintf("503 Error: send %s first", helo))
		return true
	}
	return false
}

// checkAuthNeeded replies 530 when authentication is required but the
// client has not completed it yet.
func (c *Conn) checkAuthNeeded(verb string) bool {
	if c.server.AuthRequired && !c.Session.Authenticated {
		c.LogInfo("%s: authentication required", verb)
		c.push("530 5.7.0 Authentication required")
		return true
	}
	return false
}

func (c *Conn) push(status string) {
	c.LogTrace("sending: %s", status)
	fmt.Fprintf(c.writer, "%s\r\n", status)
	c.flush()
}

func (c *Conn) reply(code int, message string) {
	c.push(fmt.Sprintf("%d %s", code, message))
}

func (c *Conn) flush() {
	c.conn.SetWriteDeadline(time.Now().Add(c.server.WriteTimeout))
	c.writer.Flush()
	c.conn.SetReadDeadline(time.Now().Add(c.server.ReadTimeout))
}

// error delivers an error a handler hook returned. ErrorSMTP values own
// their reply, everything else goes through the ExceptionHandler
// capability when the Handler provides one.
func (c *Conn) error(err error) {
	var smtpErr ErrorSMTP
	if errors.As(err, &smtpErr) {
		c.reply(smtpErr.Code, smtpErr.Message)
		return
	}
	if eh, ok := c.server.Handler.(ExceptionHandler); ok {
		status, herr := eh.HandleException(c, err)
		if herr != nil {
			c.LogError(herr, "while calling exception handler")
			c.push(fmt.Sprintf("500 Error: (%T) %s", herr, herr))
			return
		}
		c.push(status)
		return
	}
	c.LogError(err, "SMTP session exception")
	c.push(fmt.Sprintf("500 Error: (%T) %s", err, err))
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		c.LogDebug("Closing connection...")
		c.writer.Flush()
		c.conn.Close()
		c.cancel()
		c.Span.End()
		c.server.metrics.connectionsActive.Dec()
	})
}
