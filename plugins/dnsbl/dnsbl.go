// Package dnsbl refuses senders whose address is listed in DNS based
// blackhole lists. Checks run when the client issues MAIL FROM, so a
// listed relay gets a clean protocol level rejection instead of a
// dropped connection.
package dnsbl

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/miekg/dns"

	"github.com/mailgrid/esmtpd"
)

// SpamhausZones are commonly used blackhole zones of the Spamhaus project
var SpamhausZones = []string{
	"pbl.spamhaus.org",
	"sbl.spamhaus.org",
	"xbl.spamhaus.org",
	"zen.spamhaus.org",
}

// Handler checks the connecting address against blackhole zones. It
// satisfies the MailHandler capability of esmtpd.
type Handler struct {
	// Zones to consult
	Zones []string
	// Tolerance is how many listings are ignored before rejecting
	Tolerance uint32
	// Resolver is the DNS server queried, "127.0.0.1:53" style
	Resolver string
	// Client can override query behavior, plain UDP when nil
	Client *dns.Client
}

func (h *Handler) client() *dns.Client {
	if h.Client != nil {
		return h.Client
	}
	return &dns.Client{}
}

// reverse turns 1.2.3.4 into 4.3.2.1 for blackhole list lookups
func reverse(ip net.IP) (string, error) {
	v4 := ip.To4()
	if v4 == nil {
		return "", fmt.Errorf("%s is not an IPv4 address", ip)
	}
	octets := strings.Split(v4.String(), ".")
	for i, j := 0, len(octets)-1; i < j; i, j = i+1, j-1 {
		octets[i], octets[j] = octets[j], octets[i]
	}
	return strings.Join(octets, "."), nil
}

// HandleMAIL rejects the sender when the client address is listed in more
// zones than Tolerance allows.
func (h *Handler) HandleMAIL(c *esmtpd.Conn, address string, mailOptions []string) (string, error) {
	tcpAddr, ok := c.Session.Peer.(*net.TCPAddr)
	if !ok {
		return "", nil
	}
	reversed, err := reverse(tcpAddr.IP)
	if err != nil {
		c.LogDebug("%s : while reversing peer address", err)
		return "", nil
	}
	var listed uint32
	wg := sync.WaitGroup{}
	wg.Add(len(h.Zones))
	for i := range h.Zones {
		go func(zone string) {
			defer wg.Done()
			name := dns.Fqdn(fmt.Sprintf("%s.%s", reversed, zone))
			query := new(dns.Msg)
			query.SetQuestion(name, dns.TypeA)
			response, _, errE := h.client().ExchangeContext(c.Context(), query, h.Resolver)
			if errE != nil {
				c.LogError(errE, "while querying "+name)
				return
			}
			if response.Rcode != dns.RcodeSuccess || len(response.Answer) == 0 {
				c.LogDebug("%s is not listed in %s", tcpAddr.IP, zone)
				return
			}
			for j := range response.Answer {
				if a, isA := response.Answer[j].(*dns.A); isA {
					c.LogDebug("%s is listed in %s as %s", tcpAddr.IP, zone, a.A)
					atomic.AddUint32(&listed, 1)
					return
				}
			}
		}(h.Zones[i])
	}
	wg.Wait()
	if listed > h.Tolerance {
		c.LogWarn("address %s is listed in %v blackhole zones of %v checked",
			tcpAddr.IP, listed, len(h.Zones))
		return "", esmtpd.ErrorSMTP{
			Code:    554,
			Message: "5.7.1 Service unavailable; client host blocked using DNSBL",
		}
	}
	c.LogInfo("address %s is not listed in %v blackhole zones provided", tcpAddr.IP, len(h.Zones))
	return "", nil
}
