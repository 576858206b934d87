package esmtpd

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

func (c *Conn) handleRCPT(arg string) {
	if c.checkHeloNeeded("HELO") {
		return
	}
	if c.checkAuthNeeded("RCPT") {
		return
	}
	if c.Envelope.MailFrom == "" {
		c.push("503 Error: need MAIL command")
		return
	}
	syntaxErr := "501 Syntax: RCPT TO: <address>"
	if c.Session.ExtendedSMTP {
		syntaxErr += " [SP <mail-parameters>]"
	}
	if arg == "" {
		c.push(syntaxErr)
		return
	}
	arg, ok := stripCommandKeyword("TO:", arg)
	if !ok {
		c.push(syntaxErr)
		return
	}
	address, addrParams, ok := parseAddress(arg, c.server.LocalPartLimit)
	if !ok {
		c.push("553 5.1.3 Error: malformed address")
		return
	}
	if address == "" {
		c.push(syntaxErr)
		return
	}
	if !c.Session.ExtendedSMTP && addrParams != "" {
		c.push(syntaxErr)
		return
	}
	rcptOptions := strings.Fields(strings.ToUpper(addrParams))
	params, ok := parseParams(rcptOptions)
	if !ok {
		c.push(syntaxErr)
		return
	}
	// no RCPT parameters are recognized yet
	if len(params) > 0 {
		c.push("555 RCPT TO parameters not recognized or not implemented")
		return
	}
	status := ""
	if h, ok := c.server.Handler.(RcptHandler); ok {
		var err error
		status, err = h.HandleRCPT(c, address, rcptOptions)
		if err != nil {
			c.error(err)
			return
		}
	}
	if status == "" {
		c.Envelope.RcptTos = append(c.Envelope.RcptTos, address)
		c.Envelope.RcptOptions = append(c.Envelope.RcptOptions, rcptOptions...)
		status = "250 OK"
	}
	c.LogInfo("recip: %s", address)
	c.Span.SetAttributes(attribute.StringSlice("to", c.Envelope.RcptTos))
	c.push(status)
}
