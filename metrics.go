package esmtpd

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serverMetrics aggregates the prometheus instruments of one Server.
// Every Server carries its own registry so two servers in one process do
// not fight over metric names.
type serverMetrics struct {
	registry *prometheus.Registry

	connectionsTotal    prometheus.Counter
	connectionsActive   prometheus.Gauge
	connectionsRejected prometheus.Counter
	commandsTotal       *prometheus.CounterVec
	messagesAccepted    prometheus.Counter
	bytesRead           prometheus.Counter
	bytesWritten        prometheus.Counter
}

func newServerMetrics() *serverMetrics {
	m := &serverMetrics{
		registry: prometheus.NewRegistry(),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "esmtpd",
			Name:      "connections_total",
			Help:      "Connections accepted since start.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "esmtpd",
			Name:      "connections_active",
			Help:      "Connections being served right now.",
		}),
		connectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "esmtpd",
			Name:      "connections_rejected_total",
			Help:      "Connections turned away because the server was full.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "esmtpd",
			Name:      "commands_total",
			Help:      "Commands dispatched, by verb.",
		}, []string{"command"}),
		messagesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "esmtpd",
			Name:      "messages_accepted_total",
			Help:      "Messages that completed the DATA phase.",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "esmtpd",
			Name:      "bytes_read_total",
			Help:      "Bytes read from clients.",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "esmtpd",
			Name:      "bytes_written_total",
			Help:      "Bytes written to clients.",
		}),
	}
	m.registry.MustRegister(
		m.connectionsTotal,
		m.connectionsActive,
		m.connectionsRejected,
		m.commandsTotal,
		m.messagesAccepted,
		m.bytesRead,
		m.bytesWritten,
	)
	return m
}

// MetricsHandler returns an http.Handler serving the prometheus metrics
// of this server, to be mounted wherever the operator likes.
func (srv *Server) MetricsHandler() http.Handler {
	err := srv.configureDefaults()
	if err != nil {
		srv.Logger.Fatalf(nil, "%s : while configuring server", err)
	}
	return promhttp.HandlerFor(srv.metrics.registry, promhttp.HandlerOpts{})
}

// countingConn feeds the byte counters while the connection is used
type countingConn struct {
	net.Conn
	metrics *serverMetrics
}

func (cc *countingConn) Read(p []byte) (int, error) {
	n, err := cc.Conn.Read(p)
	cc.metrics.bytesRead.Add(float64(n))
	return n, err
}

func (cc *countingConn) Write(p []byte) (int, error) {
	n, err := cc.Conn.Write(p)
	cc.metrics.bytesWritten.Add(float64(n))
	return n, err
}
