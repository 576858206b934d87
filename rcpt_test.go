package esmtpd

import (
	"testing"

	"github.com/mailgrid/esmtpd/internal"
)

func TestRcptSequencing(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	expectReply(t, c, 503, "Error: send HELO first", "RCPT TO:<anne@example.com>")
	if err := internal.DoCommand(c, 250, "HELO client.example.org"); err != nil {
		t.Fatalf("%s : while sending HELO", err)
	}
	expectReply(t, c, 503, "Error: need MAIL command", "RCPT TO:<anne@example.com>")
}

func TestRcptSyntax(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "HELO client.example.org"); err != nil {
		t.Fatalf("%s : while sending HELO", err)
	}
	if err := internal.DoCommand(c, 250, "MAIL FROM:<anne@example.com>"); err != nil {
		t.Fatalf("%s : while sending MAIL", err)
	}
	syntax := "Syntax: RCPT TO: <address>"
	expectReply(t, c, 501, syntax, "RCPT")
	expectReply(t, c, 501, syntax, "RCPT <bart@example.com>")
	expectReply(t, c, 501, syntax, "RCPT TO:")
	expectReply(t, c, 501, syntax, "RCPT TO: <>")
	// parameters demand the extended dialect
	expectReply(t, c, 501, syntax, "RCPT TO:<bart@example.com> NOTIFY=NEVER")
	expectReply(t, c, 553, "5.1.3 Error: malformed address", "RCPT TO: <bart@>")
	expectReply(t, c, 250, "OK", "RCPT TO:<bart@example.com>")
}

func TestRcptParametersUnsupported(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "EHLO client.example.org"); err != nil {
		t.Fatalf("%s : while sending EHLO", err)
	}
	if err := internal.DoCommand(c, 250, "MAIL FROM:<anne@example.com>"); err != nil {
		t.Fatalf("%s : while sending MAIL", err)
	}
	expectReply(t, c, 501, "Syntax: RCPT TO: <address> [SP <mail-parameters>]",
		"RCPT TO:<bart@example.com> NOTIFY=")
	expectReply(t, c, 555, "RCPT TO parameters not recognized or not implemented",
		"RCPT TO:<bart@example.com> NOTIFY=NEVER")
}

type rcptGatekeeper struct{}

func (rg *rcptGatekeeper) HandleRCPT(c *Conn, address string, rcptOptions []string) (string, error) {
	if address == "nobody@example.com" {
		return "", ErrorSMTP{Code: 550, Message: "5.1.1 User unknown"}
	}
	c.Envelope.RcptTos = append(c.Envelope.RcptTos, address)
	return "250 Accepted", nil
}

func TestRcptHook(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{Handler: &rcptGatekeeper{}})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "HELO client.example.org"); err != nil {
		t.Fatalf("%s : while sending HELO", err)
	}
	if err := internal.DoCommand(c, 250, "MAIL FROM:<anne@example.com>"); err != nil {
		t.Fatalf("%s : while sending MAIL", err)
	}
	expectReply(t, c, 550, "5.1.1 User unknown", "RCPT TO:<nobody@example.com>")
	expectReply(t, c, 250, "Accepted", "RCPT TO:<bart@example.com>")
}
