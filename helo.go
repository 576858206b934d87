package esmtpd

import (
	"fmt"
	"strings"
)

func (c *Conn) handleHELO(arg string) {
	if arg == "" {
		c.push("501 Syntax: HELO hostname")
		return
	}
	c.resetEnvelope()
	c.Session.ExtendedSMTP = false
	if h, ok := c.server.Handler.(HeloHandler); ok {
		status, err := h.HandleHELO(c, arg)
		if err != nil {
			c.error(err)
			return
		}
		if status != "" {
			c.push(status)
			return
		}
	}
	c.Session.HostName = arg
	c.push("250 " + c.ServerName)
}

func (c *Conn) handleEHLO(arg string) {
	if arg == "" {
		c.push("501 Syntax: EHLO hostname")
		return
	}
	responses := []string{"250-" + c.ServerName}
	c.resetEnvelope()
	c.Session.ExtendedSMTP = true
	if c.server.DataSizeLimit != 0 {
		responses = append(responses, fmt.Sprintf("250-SIZE %d", c.server.DataSizeLimit))
		c.mailSizeGrowth += mailSizeGrowthSize
	}
	if !c.server.DecodeData {
		responses = append(responses, "250-8BITMIME")
	}
	if c.server.EnableSMTPUTF8 {
		responses = append(responses, "250-SMTPUTF8")
		c.mailSizeGrowth += mailSizeGrowthSMTPUTF8
	}
	if c.server.TLSConfig != nil && !c.Session.Encrypted {
		responses = append(responses, "250-STARTTLS")
	}
	if c.server.AllowInsecureAuth || c.Session.Encrypted {
		responses = append(responses, "250-AUTH "+strings.Join(c.server.authMechanismNames(), " "))
	}
	responses = append(responses, "250 HELP")
	if h, ok := c.server.Handler.(EhloHandler); ok {
		hooked, err := h.HandleEHLO(c, arg, responses)
		if err != nil {
			c.error(err)
			return
		}
		responses = hooked
	} else {
		c.Session.HostName = arg
	}
	for _, response := range responses {
		c.push(response)
	}
}

// resetEnvelope drops the mail transaction in progress while keeping the
// Session intact.
func (c *Conn) resetEnvelope() {
	c.Envelope = &Envelope{}
}
