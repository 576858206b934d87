package esmtpd

import (
	"fmt"
	"testing"

	"github.com/mailgrid/esmtpd/internal"
)

// TestLogger prints protocol traffic to stdout tagged with the name of
// the test being run
type TestLogger struct {
	Suite *testing.T
}

func (tl *TestLogger) Tracef(c *Conn, format string, args ...any) {
	fmt.Printf("TRACE: [%s] %s %s\n",
		tl.Suite.Name(), connID(c), fmt.Sprintf(format, args...))
}

func (tl *TestLogger) Debugf(c *Conn, format string, args ...any) {
	fmt.Printf("DEBUG: [%s] %s %s\n",
		tl.Suite.Name(), connID(c), fmt.Sprintf(format, args...))
}

func (tl *TestLogger) Infof(c *Conn, format string, args ...any) {
	fmt.Printf("INFO: [%s] %s %s\n",
		tl.Suite.Name(), connID(c), fmt.Sprintf(format, args...))
}

func (tl *TestLogger) Warnf(c *Conn, format string, args ...any) {
	fmt.Printf("WARN: [%s] %s %s\n",
		tl.Suite.Name(), connID(c), fmt.Sprintf(format, args...))
}

func (tl *TestLogger) Errorf(c *Conn, format string, args ...any) {
	fmt.Printf("ERROR: [%s] %s %s\n",
		tl.Suite.Name(), connID(c), fmt.Sprintf(format, args...))
}

func (tl *TestLogger) Fatalf(c *Conn, format string, args ...any) {
	fmt.Printf("FATAL: [%s] %s %s\n",
		tl.Suite.Name(), connID(c), fmt.Sprintf(format, args...))
	tl.Suite.Errorf(format, args...)
}

// RunTestServerWithoutTLS starts server on a random loopback port and
// returns its address together with a closer for the listener. A
// TestLogger is installed unless the test brought its own.
func RunTestServerWithoutTLS(t *testing.T, server *Server) (addr string, closer func()) {
	if server.Logger == nil {
		server.Logger = &TestLogger{Suite: t}
	}
	return internal.RunServerWithoutTLS(t, server)
}

// RunTestServerWithTLS is RunTestServerWithoutTLS with a self-signed
// certificate for localhost installed, so STARTTLS is on offer.
func RunTestServerWithTLS(t *testing.T, server *Server) (addr string, closer func()) {
	cfg, err := internal.MakeTLSForLocalhost()
	if err != nil {
		t.Fatalf("%s : while loading test certs for localhost", err)
	}
	server.TLSConfig = cfg
	return RunTestServerWithoutTLS(t, server)
}
