package esmtpd

// Handler is the external collaborator the protocol core delegates business
// logic to: accepting mail, overriding replies, implementing extra AUTH
// mechanisms. Any value can serve as a Handler; the server probes it with
// type assertions for the capability interfaces below, and every capability
// is independently optional.
//
// Hooks that return a status line own the wire reply: the returned string,
// for example "250 OK" or "450 4.2.0 Try again later", is written to the
// client verbatim. An empty status means "not handled" and the server
// replies with its default. A non-nil error takes the exception path:
// ErrorSMTP values are replied as-is, anything else is delivered to the
// ExceptionHandler capability or degraded to a generic 500 reply.
//
// One Handler instance may serve many connections concurrently, so
// per-connection state belongs in Session and Envelope, never in the
// Handler itself.
type Handler any

// HeloHandler is consulted after a syntactically valid HELO. The Envelope
// is already reset when it runs. When it returns a status, the server does
// not record Session.HostName itself.
type HeloHandler interface {
	HandleHELO(c *Conn, hostname string) (string, error)
}

// EhloHandler receives the response lines the server prepared, each
// "250-..." plus the final "250 HELP", and returns the lines that are
// actually sent. When this capability is present the server leaves
// Session.HostName to the hook, which lets a handler reject greetings.
type EhloHandler interface {
	HandleEHLO(c *Conn, hostname string, responses []string) ([]string, error)
}

// MailHandler is consulted after MAIL FROM passed all parameter checks and
// before the sender is recorded in the Envelope.
type MailHandler interface {
	HandleMAIL(c *Conn, address string, mailOptions []string) (string, error)
}

// RcptHandler is consulted for every RCPT TO before the recipient is
// appended to the Envelope.
type RcptHandler interface {
	HandleRCPT(c *Conn, address string, rcptOptions []string) (string, error)
}

// DataHandler consumes the completed mail transaction: when it runs,
// c.Envelope holds the sender, the recipients and the dot-unstuffed
// Content. Its status becomes the reply to the DATA phase.
type DataHandler interface {
	HandleDATA(c *Conn) (string, error)
}

// VrfyHandler overrides the reply to VRFY for a parseable address.
type VrfyHandler interface {
	HandleVRFY(c *Conn, address string) (string, error)
}

// NoopHandler overrides the reply to NOOP.
type NoopHandler interface {
	HandleNOOP(c *Conn, arg string) (string, error)
}

// QuitHandler overrides the farewell reply to QUIT. The connection is
// closed regardless of the returned status.
type QuitHandler interface {
	HandleQUIT(c *Conn) (string, error)
}

// RsetHandler is told about RSET after the Envelope was reset.
type RsetHandler interface {
	HandleRSET(c *Conn) (string, error)
}

// AuthHandler pre-empts the built-in AUTH machinery. args is the argument
// list of the AUTH command: the mechanism name and the optional initial
// response. An empty status hands control back to the built-in flow.
type AuthHandler interface {
	HandleAUTH(c *Conn, args []string) (string, error)
}

// ExceptionHandler turns an error returned by another hook into the reply
// written to the client. When absent, the server answers with
// "500 Error: (<type>) <message>".
type ExceptionHandler interface {
	HandleException(c *Conn, err error) (string, error)
}

// AuthMechanismProvider contributes extra AUTH mechanisms, keyed by
// mechanism name. Names are validated by the same rule as
// Server.RegisterAuthMechanism and invalid ones abort server startup.
type AuthMechanismProvider interface {
	AuthMechanisms() map[string]AuthMechanismFunc
}
