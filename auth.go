package esmtpd

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// mechanism names are uppercase per RFC 4954, underscore and dash allowed
var authMechanismNamePattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)

// AuthResult is what an AUTH mechanism hands back to the server.
type AuthResult struct {
	// Success reports that the client is authenticated
	Success bool
	// Handled means the mechanism already sent the failure reply itself
	// and the server should stay silent. Only read when Success is false.
	Handled bool
	// Message overrides the default reply, "235 2.7.0 Authentication
	// successful" on success and "535 5.7.8 Authentication credentials
	// invalid" on failure
	Message string
	// AuthData is free-form authentication data the mechanism extracted.
	// The built-in mechanisms store a LoginPassword here.
	AuthData any
}

// LoginPassword carries the credential pair the PLAIN and LOGIN
// mechanisms extract.
type LoginPassword struct {
	Login    []byte
	Password []byte
}

// String never exposes the password
func (lp LoginPassword) String() string {
	return fmt.Sprintf("LoginPassword(login=%q, password=...)", lp.Login)
}

// AuthMechanismFunc implements one AUTH mechanism. args is the argument
// list of the AUTH command, mechanism name first. The mechanism drives
// any challenge exchange it needs through Conn.ChallengeAuth. A non-nil
// error means the exchange broke off and the reply, if one was due, is
// already on the wire.
type AuthMechanismFunc func(c *Conn, args []string) (AuthResult, error)

// AuthCallbackFunc validates a login and password pair.
type AuthCallbackFunc func(mechanism string, login, password []byte) bool

// AuthenticatorFunc validates whatever authentication data a mechanism
// extracted and decides the outcome.
type AuthenticatorFunc func(c *Conn, mechanism string, data any) AuthResult

func (c *Conn) handleAUTH(arg string) {
	if c.checkHeloNeeded("EHLO") {
		return
	}
	if !c.Session.ExtendedSMTP {
		c.push("500 Error: command 'AUTH' not recognized")
		return
	}
	if !c.server.AllowInsecureAuth && !c.Session.Encrypted {
		c.push("538 5.7.11 Encryption required for requested authentication mechanism")
		return
	}
	if c.Session.Authenticated {
		c.push("503 Already authenticated")
		return
	}
	if arg == "" {
		c.push("501 Not enough value")
		return
	}
	args := strings.Fields(arg)
	if len(args) > 2 {
		c.push("501 Too many values")
		return
	}
	mechanism := args[0]
	c.Span.SetAttributes(attribute.String("mechanism", mechanism))
	mech, found := c.server.authMechanisms[mechanism]
	if !found {
		c.push("504 5.5.4 Unrecognized authentication type")
		return
	}
	if h, ok := c.server.Handler.(AuthHandler); ok {
		status, err := h.HandleAUTH(c, args)
		if err != nil {
			c.error(err)
			return
		}
		if status != "" {
			c.push(status)
			return
		}
	}
	result, err := mech(c, args)
	if err != nil {
		if !errors.Is(err, ErrAuthAborted) {
			c.LogDebug("%s : during AUTH exchange", err)
		}
		return
	}
	if result.Success {
		c.Session.Authenticated = true
		c.Session.AuthData = result.AuthData
		if lp, ok := result.AuthData.(LoginPassword); ok {
			c.Span.SetAttributes(attribute.String("user.name", string(lp.Login)))
			c.LogInfo("authenticated via %s as %s", mechanism, mask(string(lp.Login)))
		}
		status := result.Message
		if status == "" {
			status = "235 2.7.0 Authentication successful"
		}
		c.push(status)
		return
	}
	if result.Handled {
		return
	}
	if result.Message != "" {
		c.push(result.Message)
		return
	}
	c.push("535 5.7.8 Authentication credentials invalid")
}

// ChallengeAuth sends one authentication challenge and reads the client
// response. "334 " is prefixed; do not put it in the challenge yourself.
// The trailing space after 334 is mandatory even for an empty challenge,
// RFC 4954. A nil response with ErrAuthAborted means the client gave up
// or sent garbage and the failure reply is already sent.
//
// logClientResponse traces the raw response, which can leak credentials
// into logs. Leave it off unless absolutely necessary.
func (c *Conn) ChallengeAuth(challenge []byte, encodeToB64, logClientResponse bool) ([]byte, error) {
	if encodeToB64 {
		challenge = []byte(base64.StdEncoding.EncodeToString(challenge))
	}
	c.push("334 " + string(challenge))
	line, err := c.lines.ReadCommandLine()
	if err != nil {
		return nil, err
	}
	if logClientResponse {
		c.LogWarn("AUTH interaction logging is enabled, sensitive information might leak")
		c.LogTrace("received: %s", line)
	}
	blob := bytes.TrimSpace(line)
	// "*" aborts the exchange, RFC 4954
	if bytes.Equal(blob, []byte("*")) {
		c.LogWarn("client aborted AUTH with '*'")
		c.push("501 5.7.0 Auth aborted")
		return nil, ErrAuthAborted
	}
	decoded, err := base64.StdEncoding.DecodeString(string(blob))
	if err != nil {
		c.LogDebug("challenge response is not valid base64")
		c.push("501 5.5.2 Can't decode base64")
		return nil, ErrAuthAborted
	}
	return decoded, nil
}

// authenticate routes extracted auth data to the configured validator.
func (c *Conn) authenticate(mechanism string, data any) AuthResult {
	if c.server.Authenticator != nil {
		return c.server.Authenticator(c, mechanism, data)
	}
	lp, ok := data.(LoginPassword)
	if !ok {
		return AuthResult{Success: false, Handled: false}
	}
	if c.server.AuthCallback(mechanism, lp.Login, lp.Password) {
		return AuthResult{Success: true, Handled: true, AuthData: data}
	}
	return AuthResult{Success: false, Handled: false}
}

func (c *Conn) authPlain(args []string) (AuthResult, error) {
	var blob []byte
	if len(args) == 1 {
		var err error
		blob, err = c.ChallengeAuth(nil, true, false)
		if err != nil {
			return AuthResult{}, err
		}
	} else {
		var err error
		blob, err = base64.StdEncoding.DecodeString(args[1])
		if err != nil {
			c.push("501 5.5.2 Can't decode base64")
			return AuthResult{Success: false, Handled: true}, nil
		}
	}
	// "{authz-id}\x00{login}\x00{password}", the authorization identity
	// is accepted and ignored, RFC 4616
	parts := bytes.Split(blob, []byte{0})
	if len(parts) != 3 {
		c.push("501 5.5.2 Can't split auth value")
		return AuthResult{Success: false, Handled: true}, nil
	}
	return c.authenticate("PLAIN", LoginPassword{Login: parts[1], Password: parts[2]}), nil
}

func (c *Conn) authLogin(args []string) (AuthResult, error) {
	var login []byte
	if len(args) == 1 {
		var err error
		login, err = c.ChallengeAuth([]byte(authLoginUsernameChallenge), true, false)
		if err != nil {
			return AuthResult{}, err
		}
	} else {
		var err error
		login, err = base64.StdEncoding.DecodeString(args[1])
		if err != nil {
			c.push("501 5.5.2 Can't decode base64")
			return AuthResult{Success: false, Handled: true}, nil
		}
	}
	password, err := c.ChallengeAuth([]byte(authLoginPasswordChallenge), true, false)
	if err != nil {
		return AuthResult{}, err
	}
	return c.authenticate("LOGIN", LoginPassword{Login: login, Password: password}), nil
}
