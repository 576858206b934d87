package main

import (
	"log"
	"net/http"
	_ "net/http/pprof" // it is ok to make default HTTP server to publish debug information

	"github.com/mailgrid/esmtpd"
)

// Example with metrics and profiling.

// Profiling info will be published on http://localhost:3000/debug/pprof/
// Metrics will be published on http://localhost:3000/metrics

func main() {
	var err error
	server := esmtpd.Server{
		Hostname: "localhost",
	}
	go func() {
		http.Handle("/metrics", server.MetricsHandler())
		err = http.ListenAndServe(":3000", nil)
		if err != nil {
			log.Fatalf("%s : while starting metrics scrapper endpoint", err)
		}
	}()
	err = server.ListenAndServe(":1025")
	if err != nil {
		log.Fatalf("%s : while starting server on 0.0.0.0:1025", err)
	}
}
