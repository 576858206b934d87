package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/mailgrid/esmtpd"
	"github.com/mailgrid/esmtpd/internal"
)

const testWebhookURL = "http://webhook.example.org/incoming"

func mockedClient() *http.Client {
	return &http.Client{
		Transport: httpmock.DefaultTransport,
		Timeout:   time.Second,
	}
}

func deliverTestMessage(t *testing.T, addr string, expectedCode int) string {
	t.Helper()
	c, err := textproto.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()
	if _, _, err = c.ReadResponse(220); err != nil {
		t.Fatalf("%s : while reading welcome banner", err)
	}
	for _, command := range []string{
		"HELO client.example.org",
		"MAIL FROM:<sender@example.org>",
		"RCPT TO:<recipient@example.net>",
	} {
		if err = internal.DoCommand(c, 250, command); err != nil {
			t.Fatalf("%s : while sending %s", err, command)
		}
	}
	id, err := c.Cmd("DATA")
	if err != nil {
		t.Fatalf("%s : while sending DATA", err)
	}
	c.StartResponse(id)
	_, _, err = c.ReadResponse(354)
	c.EndResponse(id)
	if err != nil {
		t.Fatalf("%s : DATA was not accepted", err)
	}
	message := internal.MakeTestMessage("sender@example.org", "recipient@example.net")
	if _, err = c.W.WriteString(message + "\r\n.\r\n"); err != nil {
		t.Fatalf("%s : while writing message body", err)
	}
	if err = c.W.Flush(); err != nil {
		t.Fatalf("%s : while flushing message body", err)
	}
	_, msg, err := c.ReadResponse(expectedCode)
	if err != nil {
		t.Errorf("%s : unexpected end-of-data reply", err)
	}
	return msg
}

func TestWebhookDelivery(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var mu sync.Mutex
	var received Payload
	var authorization, deliveryID string
	httpmock.RegisterResponder(http.MethodPost, testWebhookURL,
		func(req *http.Request) (*http.Response, error) {
			mu.Lock()
			defer mu.Unlock()
			authorization = req.Header.Get("Authorization")
			deliveryID = req.Header.Get("X-Delivery-ID")
			body, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			err = json.Unmarshal(body, &received)
			if err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(200, "accepted"), nil
		})

	addr, closer := esmtpd.RunTestServerWithoutTLS(t, &esmtpd.Server{
		Handler: &Handler{
			URL:        testWebhookURL,
			Secret:     "hunter2",
			HTTPClient: mockedClient(),
		},
	})
	defer closer()
	reply := deliverTestMessage(t, addr, 250)
	if !strings.HasPrefix(reply, "OK: queued as ") {
		t.Errorf("unexpected reply %q", reply)
	}
	queuedAs := strings.TrimPrefix(reply, "OK: queued as ")

	mu.Lock()
	defer mu.Unlock()
	if authorization != "Bearer hunter2" {
		t.Errorf("unexpected authorization header %q", authorization)
	}
	if deliveryID != queuedAs {
		t.Errorf("delivery id %q does not match the reply %q", deliveryID, queuedAs)
	}
	if received.ID != queuedAs {
		t.Errorf("payload id %q does not match the reply %q", received.ID, queuedAs)
	}
	if received.MailFrom != "sender@example.org" {
		t.Errorf("unexpected sender %q", received.MailFrom)
	}
	if len(received.RcptTos) != 1 || received.RcptTos[0] != "recipient@example.net" {
		t.Errorf("unexpected recipients %v", received.RcptTos)
	}
	if received.HostName != "client.example.org" {
		t.Errorf("unexpected host name %q", received.HostName)
	}
	if !strings.Contains(string(received.Content), "Subject:") {
		t.Error("message content did not reach the webhook")
	}
}

func TestWebhookEndpointFailure(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodPost, testWebhookURL,
		httpmock.NewStringResponder(503, "overloaded"))

	addr, closer := esmtpd.RunTestServerWithoutTLS(t, &esmtpd.Server{
		Handler: &Handler{
			URL:        testWebhookURL,
			HTTPClient: mockedClient(),
		},
	})
	defer closer()
	reply := deliverTestMessage(t, addr, 451)
	if reply != complaint {
		t.Errorf("unexpected reply %q", reply)
	}
}

func TestWebhookUnreachable(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	// no responder is registered, the transport refuses the request

	addr, closer := esmtpd.RunTestServerWithoutTLS(t, &esmtpd.Server{
		Handler: &Handler{
			URL:        testWebhookURL,
			HTTPClient: mockedClient(),
		},
	})
	defer closer()
	reply := deliverTestMessage(t, addr, 451)
	if reply != complaint {
		t.Errorf("unexpected reply %q", reply)
	}
}
