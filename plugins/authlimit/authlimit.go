// Package authlimit throttles brute force AUTH attempts per client
// address, keeping the counters in redis so a farm of servers shares
// them.
package authlimit

import (
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mailgrid/esmtpd"
)

// DefaultMaxFailures is how many failed attempts are tolerated per window
const DefaultMaxFailures = 5

// DefaultWindow is for how long failed attempts are remembered
const DefaultWindow = 15 * time.Minute

const throttledMessage = "454 4.7.0 Too many failed attempts, try again later"

// Guard wraps an esmtpd.AuthenticatorFunc with a failure counter. While a
// client address is over the limit every attempt is refused without even
// consulting the wrapped authenticator.
type Guard struct {
	// Client is the redis connection the counters live in
	Client *redis.Client
	// MaxFailures per window, DefaultMaxFailures when zero
	MaxFailures int
	// Window of failure memory, DefaultWindow when zero
	Window time.Duration
	// Next is the authenticator being protected
	Next esmtpd.AuthenticatorFunc
}

func (g *Guard) key(c *esmtpd.Conn) string {
	if addr, ok := c.Session.Peer.(*net.TCPAddr); ok {
		return fmt.Sprintf("authlimit|%s", addr.IP.String())
	}
	return fmt.Sprintf("authlimit|%s", c.Session.Peer.String())
}

// Authenticator returns the throttled authenticator to plug into
// Server.Authenticator.
func (g *Guard) Authenticator() esmtpd.AuthenticatorFunc {
	maxFailures := g.MaxFailures
	if maxFailures == 0 {
		maxFailures = DefaultMaxFailures
	}
	window := g.Window
	if window == 0 {
		window = DefaultWindow
	}
	return func(c *esmtpd.Conn, mechanism string, data any) esmtpd.AuthResult {
		key := g.key(c)
		failures, err := g.Client.Get(c.Context(), key).Int()
		if err != nil && err != redis.Nil {
			c.LogError(err, "while reading auth failure counter")
			return esmtpd.AuthResult{Success: false, Message: "454 4.7.0 Temporary authentication problem"}
		}
		if failures >= maxFailures {
			c.LogWarn("address %s is over the auth failure limit", c.Session.Peer)
			return esmtpd.AuthResult{Success: false, Message: throttledMessage}
		}
		result := g.Next(c, mechanism, data)
		if result.Success {
			err = g.Client.Del(c.Context(), key).Err()
			if err != nil {
				c.LogError(err, "while clearing auth failure counter")
			}
			return result
		}
		pipe := g.Client.TxPipeline()
		pipe.Incr(c.Context(), key)
		pipe.Expire(c.Context(), key, window)
		_, err = pipe.Exec(c.Context())
		if err != nil {
			c.LogError(err, "while recording auth failure")
		}
		return result
	}
}
