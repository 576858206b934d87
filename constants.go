package esmtpd

import "time"

const (
	// DefaultDataSizeLimit caps the size of a message body accepted via
	// DATA when Server.DataSizeLimit is left zero.
	DefaultDataSizeLimit = 1 << 25 // 32 MiB

	// DefaultLineLengthLimit is the longest line the server reads, as per
	// RFC 5321 4.5.3.1.6: 998 octets of content, CRLF, and one octet of
	// headroom for the transparency dot.
	DefaultLineLengthLimit = 1001

	// commandSizeLimit caps command lines as per RFC 5321 4.5.3.1.4.
	// EHLO-negotiated extensions grow the ceiling for MAIL.
	commandSizeLimit = 512

	// mailSizeGrowth* is how much SIZE and SMTPUTF8 extend the MAIL
	// command ceiling when advertised.
	mailSizeGrowthSize     = 26
	mailSizeGrowthSMTPUTF8 = 10

	// DefaultCallLimit is the per-command budget used for commands
	// without an explicit entry in Server.CommandCallLimit.
	DefaultCallLimit = 20

	// BogusLimit is how many unrecognized commands a client may send
	// before the connection is dropped.
	BogusLimit = 5

	defaultReadTimeout  = 5 * time.Minute
	defaultWriteTimeout = time.Minute
	defaultDataTimeout  = 5 * time.Minute

	authLoginUsernameChallenge = "User Name\x00"
	authLoginPasswordChallenge = "Password\x00"
)
