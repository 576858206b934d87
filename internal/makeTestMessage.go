package internal

import (
	"fmt"
	"strings"
	"time"
)

// MakeTestMessage renders a minimal RFC 5322 message with CRLF line
// endings, suitable for feeding straight into a DATA phase.
func MakeTestMessage(from, to string) string {
	now := time.Now()
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: delivery check %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-Id: <%s@localhost>\r\n", now.Format("20060102150405.000000000"))
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Delivery check from %s to %s sent on %s\r\n",
		from, to, now.Format(time.Stamp))
	return b.String()
}
