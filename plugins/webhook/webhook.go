// Package webhook delivers accepted messages to an HTTP endpoint as JSON.
// Embed its Handler into your server handler to forward every completed
// DATA phase, the reply to the client carries the delivery id so both
// sides can correlate.
package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mailgrid/esmtpd"
)

const complaint = "Temporary delivery problem, please try again later"

// Payload is the JSON document posted for every accepted message
type Payload struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	Peer       string    `json:"peer"`
	HostName   string    `json:"host_name"`
	Encrypted  bool      `json:"encrypted"`
	MailFrom   string    `json:"mail_from"`
	RcptTos    []string  `json:"rcpt_tos"`
	Content    []byte    `json:"content"`
}

// Handler posts accepted messages to URL. It satisfies the DataHandler
// capability of esmtpd.
type Handler struct {
	// URL is where the payload is posted
	URL string
	// Secret, when set, is sent as the Authorization bearer token
	Secret string
	// HTTPClient can override the client used for delivery
	HTTPClient *http.Client
}

// HandleDATA posts the completed envelope and reports the delivery id to
// the client on success.
func (h *Handler) HandleDATA(c *esmtpd.Conn) (string, error) {
	client := h.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	id := uuid.NewString()
	payload := Payload{
		ID:         id,
		ReceivedAt: time.Now(),
		Peer:       c.Session.Peer.String(),
		HostName:   c.Session.HostName,
		Encrypted:  c.Session.Encrypted,
		MailFrom:   c.Envelope.MailFrom,
		RcptTos:    c.Envelope.RcptTos,
		Content:    c.Envelope.Content,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		c.LogError(err, "while encoding webhook payload")
		return "", esmtpd.ErrorSMTP{Code: 451, Message: complaint}
	}
	req, err := http.NewRequestWithContext(c.Context(), http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		c.LogError(err, "while making webhook request")
		return "", esmtpd.ErrorSMTP{Code: 451, Message: complaint}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-ID", id)
	if h.Secret != "" {
		req.Header.Set("Authorization", "Bearer "+h.Secret)
	}
	res, err := client.Do(req)
	if err != nil {
		c.LogError(err, "while delivering message to webhook")
		return "", esmtpd.ErrorSMTP{Code: 451, Message: complaint}
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.LogError(fmt.Errorf("wrong status %s", res.Status), "while delivering message to webhook")
		return "", esmtpd.ErrorSMTP{Code: 451, Message: complaint}
	}
	c.LogInfo("message from %s is delivered to webhook as %s", c.Envelope.MailFrom, id)
	return fmt.Sprintf("250 OK: queued as %s", id), nil
}
