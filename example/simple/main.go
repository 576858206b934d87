package main

import (
	"log"
	"strings"

	"github.com/mailgrid/esmtpd"
)

// mailboxHandler accepts mail for one domain and prints it
type mailboxHandler struct {
	domain string
}

func (h *mailboxHandler) HandleRCPT(c *esmtpd.Conn, address string, rcptOptions []string) (string, error) {
	if !strings.HasSuffix(address, "@"+h.domain) {
		return "", esmtpd.ErrorSMTP{
			Code:    550,
			Message: "5.1.1 User unknown, we only serve " + h.domain,
		}
	}
	return "", nil
}

func (h *mailboxHandler) HandleDATA(c *esmtpd.Conn) (string, error) {
	c.LogInfo("message from %s for %v, %v bytes",
		c.Envelope.MailFrom, c.Envelope.RcptTos, len(c.Envelope.Content))
	log.Printf("--- message start ---\n%s\n--- message end ---", c.Envelope.Content)
	return "", nil
}

func main() {
	logger := esmtpd.DefaultLogger{
		Logger: log.Default(),
		Level:  esmtpd.TraceLevel,
	}
	server := esmtpd.Server{
		Hostname:       "localhost",
		MaxConnections: 5,
		DataSizeLimit:  5 * 1024 * 1024, // 5mb
		Logger:         &logger,
		Handler:        &mailboxHandler{domain: "example.org"},
	}
	err := server.ListenAndServe(":1025")
	if err != nil {
		log.Fatalf("%s : while starting server on 0.0.0.0:1025", err)
	}
}
