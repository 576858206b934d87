package esmtpd

import (
	"fmt"
	"sort"
	"strings"
)

func (c *Conn) handleNOOP(arg string) {
	status := ""
	if h, ok := c.server.Handler.(NoopHandler); ok {
		var err error
		status, err = h.HandleNOOP(c, arg)
		if err != nil {
			c.error(err)
			return
		}
	}
	if status == "" {
		status = "250 OK"
	}
	c.push(status)
}

func (c *Conn) handleQUIT(arg string) {
	if arg != "" {
		c.push("501 Syntax: QUIT")
		return
	}
	status := ""
	if h, ok := c.server.Handler.(QuitHandler); ok {
		var err error
		status, err = h.HandleQUIT(c)
		if err != nil {
			c.error(err)
			return
		}
	}
	if status == "" {
		status = "221 Bye"
	}
	c.push(status)
	c.close()
}

func (c *Conn) handleRSET(arg string) {
	if arg != "" {
		c.push("501 Syntax: RSET")
		return
	}
	c.resetEnvelope()
	status := ""
	if h, ok := c.server.Handler.(RsetHandler); ok {
		var err error
		status, err = h.HandleRSET(c)
		if err != nil {
			c.error(err)
			return
		}
	}
	if status == "" {
		status = "250 OK"
	}
	c.push(status)
}

func (c *Conn) handleVRFY(arg string) {
	if c.checkAuthNeeded("VRFY") {
		return
	}
	if arg == "" {
		c.push("501 Syntax: VRFY <address>")
		return
	}
	address, _, ok := parseAddress(arg, c.server.LocalPartLimit)
	if !ok {
		c.push("502 Could not VRFY " + arg)
		return
	}
	status := ""
	if h, ok := c.server.Handler.(VrfyHandler); ok {
		var err error
		status, err = h.HandleVRFY(c, address)
		if err != nil {
			c.error(err)
			return
		}
	}
	if status == "" {
		status = "252 Cannot VRFY user, but will accept message and attempt delivery"
	}
	c.push(status)
}

func (c *Conn) handleEXPN(arg string) {
	c.push("502 EXPN not implemented")
}

func (c *Conn) handleHELP(arg string) {
	if c.checkAuthNeeded("HELP") {
		return
	}
	code := 250
	if arg != "" {
		if spec, found := c.server.commands[strings.ToUpper(arg)]; found && c.helpAvailable(spec) {
			help := spec.syntax
			if c.Session.ExtendedSMTP && spec.syntaxExtended != "" {
				help += spec.syntaxExtended
			}
			c.push("250 Syntax: " + help)
			return
		}
		code = 501
	}
	var names []string
	for name, spec := range c.server.commands {
		if c.helpAvailable(spec) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	c.push(fmt.Sprintf("%d Supported commands: %s", code, strings.Join(names, " ")))
}

func (c *Conn) helpAvailable(spec commandSpec) bool {
	if spec.syntax == "" {
		return false
	}
	if spec.available != nil {
		return spec.available(c.server)
	}
	return true
}
