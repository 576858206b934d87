package esmtpd

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

func (c *Conn) handleMAIL(arg string) {
	if c.checkHeloNeeded("HELO") {
		return
	}
	if c.checkAuthNeeded("MAIL") {
		return
	}
	syntaxErr := "501 Syntax: MAIL FROM: <address>"
	if c.Session.ExtendedSMTP {
		syntaxErr += " [SP <mail-parameters>]"
	}
	if arg == "" {
		c.push(syntaxErr)
		return
	}
	arg, ok := stripCommandKeyword("FROM:", arg)
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
	if c.Envelope.MailFrom != "" {
		c.push("503 Error: nested MAIL command")
		return
	}
	mailOptions := strings.Fields(strings.ToUpper(addrParams))
	params, ok := parseParams(mailOptions)
	if !ok {
		c.push(syntaxErr)
		return
	}
	if !c.server.DecodeData {
		body, found := params["BODY"]
		delete(params, "BODY")
		if found && body != "7BIT" && body != "8BITMIME" {
			c.push("501 Error: BODY can only be one of 7BIT, 8BITMIME")
			return
		}
	}
	if smtputf8, found := params["SMTPUTF8"]; found {
		delete(params, "SMTPUTF8")
		if smtputf8 != "" {
			c.push("501 Error: SMTPUTF8 takes no arguments")
			return
		}
		if !c.server.EnableSMTPUTF8 {
			c.push("501 Error: SMTPUTF8 disabled")
			return
		}
		c.Envelope.SMTPUTF8 = true
	}
	if size, found := params["SIZE"]; found {
		delete(params, "SIZE")
		if !isDigits(size) {
			c.push(syntaxErr)
			return
		}
		if c.server.DataSizeLimit != 0 && atoiLoose(size) > c.server.DataSizeLimit {
			c.push("552 Error: message size exceeds fixed maximum message size")
			return
		}
	}
	if len(params) > 0 {
		c.push("555 MAIL FROM parameters not recognized or not implemented")
		return
	}
	status := ""
	if h, ok := c.server.Handler.(MailHandler); ok {
		var err error
		status, err = h.HandleMAIL(c, address, mailOptions)
		if err != nil {
			c.error(err)
			return
		}
	}
	if status == "" {
		c.Envelope.MailFrom = address
		c.Envelope.MailOptions = append(c.Envelope.MailOptions, mailOptions...)
		status = "250 OK"
	}
	c.LogInfo("sender: %s", address)
	c.Span.SetAttributes(attribute.String("from", address))
	c.push(status)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// atoiLoose converts a digits-only string, saturating instead of failing
// on values that overflow int.
func atoiLoose(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if n > (1<<62)/10 {
			return 1 << 62
		}
		n = n*10 + int(s[i]-'0')
	}
	return n
}
