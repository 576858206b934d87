package esmtpd

import (
	"errors"
	"fmt"
)

// ErrorSMTP is an error that is reported inside the SMTP session, its code
// and message are sent to the client verbatim as a reply line. Handlers can
// return it to control the exact wire response for a rejected command.
type ErrorSMTP struct {
	Code    int    // three digit SMTP status code
	Message string // human readable part of the reply line
}

// Error returns a string representation of the SMTP error
func (e ErrorSMTP) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// ErrServerClosed is returned by the Server's Serve and ListenAndServe
// methods after a call to Shutdown.
var ErrServerClosed = errors.New("esmtpd: server closed")

// ErrAuthAborted is returned by Conn.ChallengeAuth after the reply to the
// client has already been written: either the client cancelled the exchange
// with a lone "*", or its response was not valid base64. Mechanism
// implementations should treat it as a handled failure and return nothing
// more to the client.
var ErrAuthAborted = errors.New("esmtpd: auth exchange aborted")
