package esmtpd

import (
	"crypto/tls"
	"net"
)

// Session is per-connection state that survives individual mail
// transactions. It is created when the client connects and destroyed when
// the connection closes. HELO, EHLO and RSET reset the Envelope but never
// the Session, so a client stays authenticated across transactions.
// STARTTLS replaces the Session with a fresh one per RFC 3207 part 4.2.
type Session struct {
	// Peer is the network address of the remote client.
	Peer net.Addr
	// HostName is the domain name the client introduced itself with via
	// HELO or EHLO. Empty until a greeting was accepted.
	HostName string
	// ExtendedSMTP is true once EHLO, and not plain HELO, was accepted.
	ExtendedSMTP bool
	// Encrypted means the connection runs over TLS, either because the
	// listener was a TLS listener or after STARTTLS.
	Encrypted bool
	// TLS holds connection details when Encrypted.
	TLS *tls.ConnectionState
	// Authenticated becomes true only after a successful AUTH exchange.
	Authenticated bool
	// AuthData is the opaque payload the authenticator attached to a
	// successful AUTH exchange. For the built-in PLAIN and LOGIN
	// mechanisms with the default verification path it is a
	// LoginPassword; custom authenticators are free to store anything.
	AuthData any
}
