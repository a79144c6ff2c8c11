package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

const userAgent = "GestureGuard/0.1.0"

// SoundSink surfaces an audible alert for a notification. The actual
// playback is delegated to the host; this sink records the alert class
// and message at the configured volume.
type SoundSink struct {
	Volume int
}

// NewSoundSink creates a SoundSink with the given volume (0-100).
func NewSoundSink(volume int) *SoundSink {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return &SoundSink{Volume: volume}
}

// Name implements Sink.
func (s *SoundSink) Name() string { return "sound" }

// Send implements Sink. High and critical priorities use the alert tone,
// everything else the info tone.
func (s *SoundSink) Send(_ context.Context, n Notification) error {
	tone := "info"
	if n.Priority.expedited() {
		tone = "alert"
	}
	log.Printf("sound alert: %s (volume %d) - %s", tone, s.Volume, n.Message)
	return nil
}

// EmailConfig holds SMTP settings for the email sink.
type EmailConfig struct {
	Server     string
	Port       int
	Username   string
	Password   string
	Recipients []string
}

// EmailSink delivers notifications over SMTP with STARTTLS.
type EmailSink struct {
	cfg EmailConfig
}

// NewEmailSink creates an EmailSink with the given SMTP configuration.
func NewEmailSink(cfg EmailConfig) *EmailSink {
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	return &EmailSink{cfg: cfg}
}

// Name implements Sink.
func (e *EmailSink) Name() string { return "email" }

// Send implements Sink. The dial honors the context deadline so a dead
// SMTP server cannot stall the caller past the sink timeout.
func (e *EmailSink) Send(ctx context.Context, n Notification) error {
	if e.cfg.Server == "" || e.cfg.Username == "" || len(e.cfg.Recipients) == 0 {
		return fmt.Errorf("email configuration incomplete")
	}

	addr := fmt.Sprintf("%s:%d", e.cfg.Server, e.cfg.Port)
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, e.cfg.Server)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: e.cfg.Server}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}

	auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Server)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(e.cfg.Username); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range e.cfg.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(e.buildMessage(n)); err != nil {
		w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}

	return client.Quit()
}

// buildMessage renders the notification as a plain-text email.
func (e *EmailSink) buildMessage(n Notification) []byte {
	data, _ := json.MarshalIndent(n.Data, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.Username)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.cfg.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: GestureGuard Alert: %s\r\n", n.Type)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "GestureGuard Notification\r\n\r\n")
	fmt.Fprintf(&b, "Type: %s\r\n", n.Type)
	fmt.Fprintf(&b, "Priority: %s\r\n", n.Priority)
	fmt.Fprintf(&b, "Time: %s\r\n\r\n", n.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Message: %s\r\n\r\n", n.Message)
	fmt.Fprintf(&b, "Data: %s\r\n", data)

	return []byte(b.String())
}

// PushSink posts notifications as JSON to an HTTP push service.
type PushSink struct {
	url    string
	client *http.Client
}

// NewPushSink creates a PushSink for the given service URL.
func NewPushSink(url string, timeout time.Duration) *PushSink {
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}
	return &PushSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Name implements Sink.
func (p *PushSink) Name() string { return "push" }

// pushPayload is the wire format accepted by the push service.
type pushPayload struct {
	Type      Type           `json:"type"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
	Priority  Priority       `json:"priority"`
	Timestamp time.Time      `json:"timestamp"`
}

// Send implements Sink.
func (p *PushSink) Send(ctx context.Context, n Notification) error {
	if p.url == "" {
		return fmt.Errorf("push service url not configured")
	}

	body, err := json.Marshal(pushPayload{
		Type:      n.Type,
		Message:   n.Message,
		Data:      n.Data,
		Priority:  n.Priority,
		Timestamp: n.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("push service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
