package esmtpd

import (
	"strings"
	"testing"

	"github.com/mailgrid/esmtpd/internal"
)

func TestMailNeedsGreeting(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	expectReply(t, c, 503, "Error: send HELO first", "MAIL FROM:<anne@example.com>")
}

func TestMailSyntax(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "HELO client.example.org"); err != nil {
		t.Fatalf("%s : while sending HELO", err)
	}
	syntax := "Syntax: MAIL FROM: <address>"
	expectReply(t, c, 501, syntax, "MAIL")
	expectReply(t, c, 501, syntax, "MAIL <anne@example.com>")
	expectReply(t, c, 501, syntax, "MAIL FROM:")
	expectReply(t, c, 501, syntax, "MAIL FROM: <>")
	// parameters demand the extended dialect
	expectReply(t, c, 501, syntax, "MAIL FROM:<anne@example.com> SIZE=1024")
	expectReply(t, c, 250, "OK", "MAIL FROM:<anne@example.com>")
	expectReply(t, c, 503, "Error: nested MAIL command", "MAIL FROM:<bart@example.com>")
}

func TestMailExtendedSyntax(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "EHLO client.example.org"); err != nil {
		t.Fatalf("%s : while sending EHLO", err)
	}
	syntax := "Syntax: MAIL FROM: <address> [SP <mail-parameters>]"
	expectReply(t, c, 501, syntax, "MAIL")
	expectReply(t, c, 501, syntax, "MAIL FROM: <anne@example.com> SIZE")
	expectReply(t, c, 501, syntax, "MAIL FROM: <anne@example.com> SIZE=")
	expectReply(t, c, 501, syntax, "MAIL FROM: <anne@example.com> SIZE=foo")
	expectReply(t, c, 553, "5.1.3 Error: malformed address", "MAIL FROM: <@example.com>")
	expectReply(t, c, 555, "MAIL FROM parameters not recognized or not implemented",
		"MAIL FROM: <anne@example.com> FOO=BAR")
}

func TestMailBodyParameter(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "EHLO client.example.org"); err != nil {
		t.Fatalf("%s : while sending EHLO", err)
	}
	expectReply(t, c, 501, "Error: BODY can only be one of 7BIT, 8BITMIME",
		"MAIL FROM: <anne@example.com> BODY=QUOTED-PRINTABLE")
	expectReply(t, c, 501, "Error: BODY can only be one of 7BIT, 8BITMIME",
		"MAIL FROM: <anne@example.com> BODY")
	expectReply(t, c, 250, "OK", "MAIL FROM: <anne@example.com> BODY=8BITMIME")
	if err := internal.DoCommand(c, 250, "RSET"); err != nil {
		t.Fatalf("%s : while sending RSET", err)
	}
	expectReply(t, c, 250, "OK", "MAIL FROM: <anne@example.com> BODY=7BIT")
}

func TestMailBodyRejectedWhenDecoding(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{DecodeData: true})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "EHLO client.example.org"); err != nil {
		t.Fatalf("%s : while sending EHLO", err)
	}
	// a decoding server advertises no 8BITMIME and accepts no BODY
	expectReply(t, c, 555, "MAIL FROM parameters not recognized or not implemented",
		"MAIL FROM: <anne@example.com> BODY=8BITMIME")
}

func TestMailSizeParameter(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{DataSizeLimit: 1024})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "EHLO client.example.org"); err != nil {
		t.Fatalf("%s : while sending EHLO", err)
	}
	expectReply(t, c, 552, "Error: message size exceeds fixed maximum message size",
		"MAIL FROM: <anne@example.com> SIZE=2048")
	expectReply(t, c, 250, "OK", "MAIL FROM: <anne@example.com> SIZE=512")
}

func TestMailSizeParameterUnlimited(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{DataSizeLimit: -1})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "EHLO client.example.org"); err != nil {
		t.Fatalf("%s : while sending EHLO", err)
	}
	expectReply(t, c, 250, "OK",
		"MAIL FROM: <anne@example.com> SIZE=99999999999999999999999999")
}

func TestMailSMTPUTF8Parameter(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{EnableSMTPUTF8: true})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "EHLO client.example.org"); err != nil {
		t.Fatalf("%s : while sending EHLO", err)
	}
	expectReply(t, c, 501, "Error: SMTPUTF8 takes no arguments",
		"MAIL FROM: <anne@example.com> SMTPUTF8=YES")
	expectReply(t, c, 250, "OK", "MAIL FROM: <anne@example.com> SMTPUTF8")
}

func TestMailSMTPUTF8Disabled(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "EHLO client.example.org"); err != nil {
		t.Fatalf("%s : while sending EHLO", err)
	}
	expectReply(t, c, 501, "Error: SMTPUTF8 disabled",
		"MAIL FROM: <anne@example.com> SMTPUTF8")
}

func TestMailStrictASCII(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "EHLO client.example.org"); err != nil {
		t.Fatalf("%s : while sending EHLO", err)
	}
	expectReply(t, c, 500, "Error: strict ASCII mode",
		"MAIL FROM: <anne@ドメイン.example.jp>")
}

func TestMailUTF8Address(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{EnableSMTPUTF8: true})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "EHLO client.example.org"); err != nil {
		t.Fatalf("%s : while sending EHLO", err)
	}
	expectReply(t, c, 250, "OK", "MAIL FROM: <anne@ドメイン.example.jp> SMTPUTF8")
}

func TestMailCommandLineGrowth(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	// the padded command overflows the base 512 octet ceiling but fits
	// once EHLO grants SIZE its extra room
	local := strings.Repeat("a", 520-len("MAIL FROM: <@example.com>"))
	command := "MAIL FROM: <" + local + "@example.com>"
	if err := internal.DoCommand(c, 250, "HELO client.example.org"); err != nil {
		t.Fatalf("%s : while sending HELO", err)
	}
	expectReply(t, c, 500, "Command line too long", command)
	if err := internal.DoCommand(c, 250, "EHLO client.example.org"); err != nil {
		t.Fatalf("%s : while sending EHLO", err)
	}
	expectReply(t, c, 250, "OK", command)
}

func TestMailLocalPartLimit(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{LocalPartLimit: 64})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "EHLO client.example.org"); err != nil {
		t.Fatalf("%s : while sending EHLO", err)
	}
	expectReply(t, c, 553, "5.1.3 Error: malformed address",
		"MAIL FROM: <"+strings.Repeat("a", 65)+"@example.com>")
	expectReply(t, c, 250, "OK",
		"MAIL FROM: <"+strings.Repeat("a", 64)+"@example.com>")
}

type mailRejector struct{}

func (mr *mailRejector) HandleMAIL(c *Conn, address string, mailOptions []string) (string, error) {
	if address == "spammer@example.net" {
		return "550 5.7.1 Sender refused", nil
	}
	return "", nil
}

func TestMailHook(t *testing.T) {
	addr, closer := RunTestServerWithoutTLS(t, &Server{Handler: &mailRejector{}})
	defer closer()
	c := dialText(t, addr)
	defer c.Close()
	if err := internal.DoCommand(c, 250, "EHLO client.example.org"); err != nil {
		t.Fatalf("%s : while sending EHLO", err)
	}
	expectReply(t, c, 550, "5.7.1 Sender refused", "MAIL FROM: <spammer@example.net>")
	expectReply(t, c, 250, "OK", "MAIL FROM: <anne@example.com>")
}
