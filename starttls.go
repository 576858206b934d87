package esmtpd

import (
	"bufio"
	"crypto/tls"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

func (c *Conn) handleSTARTTLS(arg string) {
	if arg != "" {
		c.push("501 Syntax: STARTTLS")
		return
	}
	if c.server.TLSConfig == nil {
		c.push("454 TLS not available")
		return
	}
	if c.Session.Encrypted {
		c.LogDebug("Connection is already encrypted!")
		c.push("502 Already running in TLS")
		return
	}
	c.push("220 Ready to start TLS")
	// Clear deadlines on the underlying connection before the handshake,
	// it manages its own timing
	c.conn.SetDeadline(time.Time{})
	tlsConn := tls.Server(c.conn, c.server.TLSConfig)
	err := tlsConn.Handshake()
	if err != nil {
		c.LogError(err, "couldn't perform handshake")
		c.close()
		return
	}
	c.LogInfo("connection is encrypted via STARTTLS")
	c.Span.SetAttributes(attribute.Bool("encrypted", true))

	// Replace connection with the TLS connection and start the session
	// over: the client has to greet again and authentication state is
	// gone, RFC 3207 part 4.2
	c.conn = tlsConn
	c.reader = bufio.NewReader(tlsConn)
	c.writer = bufio.NewWriter(tlsConn)
	c.lines = newLineReader(c.reader, c.server.LineLengthLimit)
	state := tlsConn.ConnectionState()
	c.Session = &Session{
		Peer:      c.Session.Peer,
		Encrypted: true,
		TLS:       &state,
	}
	c.resetEnvelope()
	c.mailSizeGrowth = 0
}
