package esmtpd

import (
	"bytes"
	"strings"
	"time"
)

// dataState tracks how the DATA phase is going. Once it leaves nominal
// the body is discarded but the stream keeps being drained, and the
// failure reply is delayed until the end-of-data marker, as RFC 5321
// 4.2.5 implies. The first anomaly wins: a later one never overwrites it.
type dataState int

const (
	dataNominal dataState = iota
	dataTooLong
	dataTooMuch
)

var dataTerminator = []byte(".\r\n")

func (c *Conn) handleDATA(arg string) {
	if c.checkHeloNeeded("HELO") {
		return
	}
	if c.checkAuthNeeded("DATA") {
		return
	}
	if len(c.Envelope.RcptTos) == 0 {
		c.push("503 Error: need RCPT command")
		return
	}
	if arg != "" {
		c.push("501 Syntax: DATA")
		return
	}
	c.push("354 End data with <CR><LF>.<CR><LF>")

	var data [][]byte
	var fragments [][]byte
	numBytes := 0
	limit := c.server.DataSizeLimit
	state := dataNominal
	for {
		c.conn.SetReadDeadline(time.Now().Add(c.server.DataTimeout))
		line, terminated, err := c.lines.ReadDataChunk()
		if err != nil {
			c.LogDebug("%s : while reading message data", err)
			c.close()
			return
		}
		// A line whose content crosses the limit is an overrun even
		// when its CRLF arrived inside the same read. The too-long
		// transition outranks the size accounting below.
		if !terminated || len(line)-2 > c.server.LineLengthLimit {
			if state == dataNominal {
				state = dataTooLong
			}
			data = nil
		}
		// A lone dot on a line of its own signals the end of DATA.
		if len(fragments) == 0 && bytes.Equal(line, dataTerminator) {
			break
		}
		numBytes += len(line)
		if state == dataNominal && limit != 0 && numBytes > limit {
			// Delay the reply until data receive is complete
			state = dataTooMuch
			data = nil
		}
		fragments = append(fragments, line)
		if terminated {
			if state == dataNominal {
				joined := bytes.Join(fragments, nil)
				if len(joined) > c.server.LineLengthLimit {
					state = dataTooLong
					data = nil
				} else {
					data = append(data, joined)
				}
			}
			fragments = fragments[:0]
		}
	}

	if state != dataNominal {
		if state == dataTooLong {
			c.push("500 Line too long (see RFC5321 4.5.3.1.6)")
		} else {
			c.push("552 Error: Too much mail data")
		}
		c.resetEnvelope()
		return
	}

	// Remove the transparency dot, RFC 5321 4.5.2
	for i, line := range data {
		if len(line) > 0 && line[0] == '.' {
			data[i] = line[1:]
		}
	}
	content := bytes.Join(data, nil)
	if c.server.DecodeData {
		text := string(content)
		if !c.server.EnableSMTPUTF8 && !isASCII(text) {
			c.push("500 Error: strict ASCII mode")
			return
		}
		c.Envelope.Text = text
	}
	c.Envelope.Content = content

	status := ""
	if h, ok := c.server.Handler.(DataHandler); ok {
		var err error
		status, err = h.HandleDATA(c)
		if err != nil {
			c.error(err)
			return
		}
	}
	if status == "" {
		status = "250 OK"
	}
	if strings.HasPrefix(status, "2") {
		c.server.metrics.messagesAccepted.Inc()
	}
	c.resetEnvelope()
	c.push(status)
}
