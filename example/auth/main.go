package main

// This example shows a submission style server: TLS is required before
// AUTH, and only authenticated clients can send mail.

import (
	"bytes"
	"log"

	"github.com/mailgrid/esmtpd"
)

func main() {
	logger := esmtpd.DefaultLogger{
		Logger: log.Default(),
		Level:  esmtpd.DebugLevel,
	}
	server := esmtpd.Server{
		Hostname:     "submission.example.org",
		AuthRequired: true,
		Logger:       &logger,
		AuthCallback: func(mechanism string, login, password []byte) bool {
			// replace with a real credential store
			return bytes.Equal(login, []byte("anne")) &&
				bytes.Equal(password, []byte("super secret"))
		},
	}
	// Without a TLSConfig, AllowInsecureAuth would be needed for AUTH to
	// work at all. Do not do that outside of examples.
	server.AllowInsecureAuth = true
	err := server.ListenAndServe(":1587")
	if err != nil {
		log.Fatalf("%s : while starting server on 0.0.0.0:1587", err)
	}
}
