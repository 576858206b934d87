package esmtpd

// Envelope is the per-transaction record of one MAIL ... DATA cycle:
// sender, recipients, their ESMTP parameters and, once DATA completed, the
// message body. A fresh Envelope is installed at connection start and after
// every HELO, EHLO, RSET and completed DATA.
type Envelope struct {
	// MailFrom is the sender address, empty until MAIL FROM was accepted.
	MailFrom string
	// MailOptions are the uppercased ESMTP parameters of the MAIL command.
	MailOptions []string
	// RcptTos are recipient addresses in the order the client supplied
	// them. Duplicates are kept.
	RcptTos []string
	// RcptOptions are the uppercased ESMTP parameters of RCPT commands.
	RcptOptions []string
	// SMTPUTF8 is true when the client negotiated the SMTPUTF8 MAIL
	// parameter.
	SMTPUTF8 bool
	// Content is the message body after DATA completed: dot-unstuffed,
	// CRLF line endings preserved. Nil before that.
	Content []byte
	// Text is Content decoded to a string when the server runs with
	// DecodeData enabled, empty otherwise.
	Text string
}
