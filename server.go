package esmtpd

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Server defines the parameters for running an ESMTP server.
// The zero value is usable: it listens without TLS, accepts every message,
// and answers every hook with its default reply.
type Server struct {
	// Hostname is how we name ourselves in the banner and in HELO/EHLO
	// replies, default is "localhost.localdomain"
	Hostname string
	// Ident is the server software identification appended to the
	// banner. (default: "ESMTP esmtpd")
	Ident string

	// Handler receives the protocol events. Any value works, the server
	// probes it for the capability interfaces declared in handler.go.
	Handler Handler

	// DataSizeLimit caps the message body in bytes. Zero selects
	// DefaultDataSizeLimit, a negative value disables the cap.
	DataSizeLimit int
	// LineLengthLimit caps a single protocol line including its CRLF.
	// (default: DefaultLineLengthLimit)
	LineLengthLimit int
	// LocalPartLimit caps the local part of addresses in MAIL and RCPT.
	// Zero disables the check.
	LocalPartLimit int

	// EnableSMTPUTF8 advertises the SMTPUTF8 extension and accepts
	// non-ASCII command arguments and message bodies.
	EnableSMTPUTF8 bool
	// DecodeData makes the server decode message bodies into
	// Envelope.Text and reject non-ASCII bodies unless EnableSMTPUTF8
	// is set. It also stops EHLO from advertising 8BITMIME.
	DecodeData bool

	// AuthRequired rejects MAIL, RCPT, DATA, VRFY and HELP with a 530
	// reply until the client authenticates.
	AuthRequired bool
	// AllowInsecureAuth permits AUTH on unencrypted connections. Off by
	// default: credentials over plaintext is how they leak.
	AllowInsecureAuth bool
	// AuthCallback validates a login and password pair. Used by the
	// built-in PLAIN and LOGIN mechanisms when Authenticator is nil.
	AuthCallback AuthCallbackFunc
	// Authenticator validates whatever auth data a mechanism extracted.
	// Takes precedence over AuthCallback.
	Authenticator AuthenticatorFunc
	// AuthExcludeMechanism removes mechanisms by name from the ones on
	// offer, built-in or registered.
	AuthExcludeMechanism []string

	// CommandCallLimit caps how many times each command may be issued in
	// one connection. The "*" key sets the budget for commands without
	// their own entry, absent that it is DefaultCallLimit. A nil map
	// disables the enforcement entirely.
	CommandCallLimit map[string]int

	// MaxConnections sets maximum number of concurrent connections, use
	// -1 to disable. (default: 100)
	MaxConnections int

	// ReadTimeout is how long a connection may sit idle between
	// commands. (default: 5m)
	ReadTimeout time.Duration
	// WriteTimeout is socket timeout for write operations. (default: 60s)
	WriteTimeout time.Duration
	// DataTimeout is socket timeout while reading the message body.
	// (default: 5m)
	DataTimeout time.Duration

	// TLSConfig is used both for STARTTLS and operation over TLS channel
	TLSConfig *tls.Config
	// ForceTLS rejects everything but NOOP, EHLO, STARTTLS and QUIT
	// until the channel is encrypted
	ForceTLS bool

	// Logger is interface being used as protocol/plugin/errors logger
	Logger Logger
	// Tracer emits an OpenTelemetry span per connection
	Tracer trace.Tracer

	authMechanisms map[string]AuthMechanismFunc
	commands       map[string]commandSpec
	metrics        *serverMetrics
	configOnce     sync.Once
	configErr      error

	// mu guards doneChan and makes closing it and listener atomic from
	// perspective of Serve()
	mu         sync.Mutex
	doneChan   chan struct{}
	listener   *net.Listener
	waitgrp    sync.WaitGroup
	inShutdown atomic.Bool
}

// startConn takes network connection and wraps it into Conn object to
// handle all remote client interactions via the ESMTP protocol.
func (srv *Server) startConn(c net.Conn) (conn *Conn) {
	id, err := getRandomID()
	if err != nil {
		panic(err) // its extremely unlikely
	}
	ctx, cancel := context.WithCancel(context.Background())
	ctx, span := srv.Tracer.Start(ctx, "connection",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithNewRoot(),
		trace.WithAttributes(attribute.String("peer", c.RemoteAddr().String())),
	)
	srv.metrics.connectionsActive.Inc()
	counting := &countingConn{Conn: c, metrics: srv.metrics}
	conn = &Conn{
		ID:         id,
		StartedAt:  time.Now(),
		ServerName: srv.Hostname,
		Logger:     srv.Logger,
		Span:       span,

		server: srv,
		conn:   counting,
		reader: bufio.NewReader(counting),
		writer: bufio.NewWriter(counting),

		ctx:    ctx,
		cancel: cancel,

		bogusBudget: BogusLimit,
	}
	conn.lines = newLineReader(conn.reader, srv.LineLengthLimit)
	conn.Session = &Session{Peer: c.RemoteAddr()}
	conn.Envelope = &Envelope{}
	if srv.CommandCallLimit != nil {
		conn.callBudget = make(map[string]int, len(srv.CommandCallLimit))
	}

	// Check if the underlying connection is already TLS.
	// This will happen if the Listener provided Serve()
	// is from tls.Listen()
	if tlsConn, ok := c.(*tls.Conn); ok {
		// run handshake otherwise it's done when we first
		// read/write and connection state will be invalid
		err = tlsConn.Handshake()
		if err != nil {
			conn.LogDebug("%s : while performing handshake", err)
		}
		state := tlsConn.ConnectionState()
		conn.Session.Encrypted = true
		conn.Session.TLS = &state
	}
	return conn
}

// ListenAndServe starts the SMTP server and listens on the address provided
func (srv *Server) ListenAndServe(addr string) error {
	if srv.inShutdown.Load() {
		return ErrServerClosed
	}
	err := srv.configureDefaults()
	if err != nil {
		return err
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return srv.Serve(l)
}

// Serve starts the SMTP server and listens on the Listener provided
func (srv *Server) Serve(l net.Listener) error {
	if srv.inShutdown.Load() {
		return ErrServerClosed
	}
	err := srv.configureDefaults()
	if err != nil {
		return err
	}
	l = &onceCloseListener{Listener: l}
	defer l.Close()
	srv.listener = &l
	var limiter chan struct{}
	if srv.MaxConnections > 0 {
		limiter = make(chan struct{}, srv.MaxConnections)
	}
	for {
		conn, e := l.Accept()
		if e != nil {
			select {
			case <-srv.getDoneChan():
				return ErrServerClosed
			default:
			}

			if ne, ok := e.(net.Error); ok && ne.Temporary() {
				time.Sleep(time.Second)
				continue
			}
			return e
		}
		c := srv.startConn(conn)
		srv.metrics.connectionsTotal.Inc()
		srv.waitgrp.Add(1)
		go func() {
			defer srv.waitgrp.Done()
			if limiter != nil {
				select {
				case limiter <- struct{}{}:
					c.serve()
					srv.Logger.Infof(c, "connection serving is finished")
					<-limiter
				default:
					c.reject()
					srv.Logger.Infof(c, "connection is rejected, server is busy")
				}
			} else {
				c.serve()
				srv.Logger.Infof(c, "connection serving is finished")
			}
		}()
	}
}

// Shutdown instructs the server to shut down, starting by closing the
// associated listener. If wait is true, it will wait for the shutdown
// to complete. If wait is false, Wait must be called afterwards.
func (srv *Server) Shutdown(wait bool) error {
	var lnerr error
	srv.inShutdown.Store(true)

	// First close the listener
	srv.mu.Lock()
	if srv.listener != nil {
		lnerr = (*srv.listener).Close()
	}
	srv.closeDoneChanLocked()
	srv.mu.Unlock()

	// Now wait for all client connections to close
	if wait {
		srv.Wait()
	}

	return lnerr
}

// Wait waits for all client connections to close and the server to finish
// shutting down.
func (srv *Server) Wait() error {
	if !srv.inShutdown.Load() {
		return errors.New("server has not been shutdown")
	}
	srv.waitgrp.Wait()
	return nil
}

// Address returns the listening address of the server
func (srv *Server) Address() net.Addr {
	return (*srv.listener).Addr()
}

// RegisterAuthMechanism adds an AUTH mechanism to the ones the server
// offers. Built-in PLAIN and LOGIN can be overridden by registering the
// same name. Must be called before Serve.
func (srv *Server) RegisterAuthMechanism(name string, mechanism AuthMechanismFunc) error {
	if !authMechanismNamePattern.MatchString(name) {
		return fmt.Errorf("esmtpd: invalid AUTH mechanism name %q", name)
	}
	if srv.authMechanisms == nil {
		srv.authMechanisms = make(map[string]AuthMechanismFunc)
	}
	srv.authMechanisms[name] = mechanism
	return nil
}

func (srv *Server) configureDefaults() error {
	srv.configOnce.Do(func() { srv.configErr = srv.doConfigureDefaults() })
	return srv.configErr
}

func (srv *Server) doConfigureDefaults() error {
	if srv.DataSizeLimit == 0 {
		srv.DataSizeLimit = DefaultDataSizeLimit
	}
	if srv.DataSizeLimit < 0 {
		srv.DataSizeLimit = 0 // unlimited
	}
	if srv.LineLengthLimit == 0 {
		srv.LineLengthLimit = DefaultLineLengthLimit
	}
	if srv.MaxConnections == 0 {
		srv.MaxConnections = 100
	}
	if srv.ReadTimeout == 0 {
		srv.ReadTimeout = defaultReadTimeout
	}
	if srv.WriteTimeout == 0 {
		srv.WriteTimeout = defaultWriteTimeout
	}
	if srv.DataTimeout == 0 {
		srv.DataTimeout = defaultDataTimeout
	}
	if srv.ForceTLS && srv.TLSConfig == nil {
		log.Fatal("Cannot use ForceTLS with no TLSConfig")
	}
	if srv.Hostname == "" {
		srv.Hostname = "localhost.localdomain"
	}
	if srv.Ident == "" {
		srv.Ident = "ESMTP esmtpd"
	}
	if srv.Logger == nil {
		srv.Logger = &DefaultLogger{
			Logger: log.Default(),
			Level:  InfoLevel,
		}
	}
	if srv.Tracer == nil {
		srv.Tracer = otel.GetTracerProvider().Tracer("github.com/mailgrid/esmtpd")
	}
	if srv.metrics == nil {
		srv.metrics = newServerMetrics()
	}
	if srv.AuthRequired && srv.AllowInsecureAuth {
		srv.Logger.Warnf(nil, "AuthRequired with AllowInsecureAuth can lead to credential leaks")
	}
	if srv.Authenticator == nil && srv.AuthCallback == nil {
		srv.AuthCallback = func(mechanism string, login, password []byte) bool {
			return false
		}
	}
	if srv.authMechanisms == nil {
		srv.authMechanisms = make(map[string]AuthMechanismFunc)
	}
	if _, found := srv.authMechanisms["PLAIN"]; !found {
		srv.authMechanisms["PLAIN"] = (*Conn).authPlain
	}
	if _, found := srv.authMechanisms["LOGIN"]; !found {
		srv.authMechanisms["LOGIN"] = (*Conn).authLogin
	}
	if provider, ok := srv.Handler.(AuthMechanismProvider); ok {
		for name, mechanism := range provider.AuthMechanisms() {
			if !authMechanismNamePattern.MatchString(name) {
				return fmt.Errorf("esmtpd: invalid AUTH mechanism name %q", name)
			}
			srv.authMechanisms[name] = mechanism
		}
	}
	for _, name := range srv.AuthExcludeMechanism {
		delete(srv.authMechanisms, name)
	}
	srv.Logger.Infof(nil, "available AUTH mechanisms: %s", strings.Join(srv.authMechanismNames(), " "))
	srv.commands = buildCommandTable()
	return nil
}

func (srv *Server) authMechanismNames() []string {
	names := make([]string, 0, len(srv.authMechanisms))
	for name := range srv.authMechanisms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// From net/http/server.go

func (srv *Server) shuttingDown() bool {
	return srv.inShutdown.Load()
}

func (srv *Server) getDoneChan() <-chan struct{} {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.getDoneChanLocked()
}

func (srv *Server) getDoneChanLocked() chan struct{} {
	if srv.doneChan == nil {
		srv.doneChan = make(chan struct{})
	}
	return srv.doneChan
}

func (srv *Server) closeDoneChanLocked() {
	ch := srv.getDoneChanLocked()
	select {
	case <-ch:
		// Already closed. Don't close again.
	default:
		// Safe to close here. We're the only closer, guarded
		// by s.mu.
		close(ch)
	}
}

// onceCloseListener wraps a net.Listener, protecting it from
// multiple Close calls.
type onceCloseListener struct {
	net.Listener
	once     sync.Once
	closeErr error
}

// Close closes
func (oc *onceCloseListener) Close() error {
	oc.once.Do(oc.close)
	return oc.closeErr
}

func (oc *onceCloseListener) close() { oc.closeErr = oc.Listener.Close() }
