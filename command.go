package esmtpd

// commandHandler executes one SMTP verb. arg is everything after the verb
// with surrounding whitespace removed, empty when the client sent the bare
// verb.
type commandHandler func(c *Conn, arg string)

// commandSpec describes one verb of the dispatch table. syntax feeds the
// HELP output; verbs without syntax stay out of the HELP listing.
// syntaxExtended is appended for sessions negotiated with EHLO. available
// gates verbs that depend on server configuration, like STARTTLS.
type commandSpec struct {
	handler        commandHandler
	syntax         string
	syntaxExtended string
	available      func(srv *Server) bool
}

func buildCommandTable() map[string]commandSpec {
	return map[string]commandSpec{
		"HELO": {
			handler: (*Conn).handleHELO,
			syntax:  "HELO hostname",
		},
		"EHLO": {
			handler: (*Conn).handleEHLO,
			syntax:  "EHLO hostname",
		},
		"MAIL": {
			handler:        (*Conn).handleMAIL,
			syntax:         "MAIL FROM: <address>",
			syntaxExtended: " [SP <mail-parameters>]",
		},
		"RCPT": {
			handler:        (*Conn).handleRCPT,
			syntax:         "RCPT TO: <address>",
			syntaxExtended: " [SP <mail-parameters>]",
		},
		"DATA": {
			handler: (*Conn).handleDATA,
			syntax:  "DATA",
		},
		"RSET": {
			handler: (*Conn).handleRSET,
			syntax:  "RSET",
		},
		"NOOP": {
			handler: (*Conn).handleNOOP,
			syntax:  "NOOP [ignored]",
		},
		"QUIT": {
			handler: (*Conn).handleQUIT,
			syntax:  "QUIT",
		},
		"VRFY": {
			handler: (*Conn).handleVRFY,
			syntax:  "VRFY <address>",
		},
		"EXPN": {
			handler: (*Conn).handleEXPN,
		},
		"HELP": {
			handler: (*Conn).handleHELP,
			syntax:  "HELP [command]",
		},
		"AUTH": {
			handler: (*Conn).handleAUTH,
			syntax:  "AUTH <mechanism>",
			available: func(srv *Server) bool {
				return len(srv.authMechanisms) > 0
			},
		},
		"STARTTLS": {
			handler: (*Conn).handleSTARTTLS,
			syntax:  "STARTTLS",
			available: func(srv *Server) bool {
				return srv.TLSConfig != nil
			},
		},
	}
}
