// Package mailer implements the outbound email transport over SMTP,
// supporting both implicit TLS and STARTTLS connections.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/lexdesk/deadline-alerts/internal/model"
)

// dialTimeout is the maximum time allowed to establish the SMTP
// connection.
const dialTimeout = 30 * time.Second

// SMTPTransport sends HTML notification emails through a configured
// SMTP relay.
type SMTPTransport struct {
	cfg      model.SMTPConfig
	password string
}

// NewSMTPTransport creates a transport. The password comes from the
// credential store, not the config file.
func NewSMTPTransport(cfg model.SMTPConfig, password string) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, password: password}
}

// Send composes and delivers one message. The call respects ctx: on
// cancellation or deadline it returns the context error and the caller
// treats the delivery as failed.
func (t *SMTPTransport) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	messageID, body, err := t.buildMessage(to, subject, htmlBody)
	if err != nil {
		return "", err
	}

	type outcome struct{ err error }
	done := make(chan outcome, 1)
	go func() {
		done <- outcome{err: t.send(to, body)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case o := <-done:
		if o.err != nil {
			return "", o.err
		}
		return messageID, nil
	}
}

// buildMessage renders the MIME envelope with a single HTML part.
func (t *SMTPTransport) buildMessage(to, subject, htmlBody string) (string, []byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: t.cfg.From}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	if err := h.GenerateMessageID(); err != nil {
		return "", nil, fmt.Errorf("generating message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return "", nil, fmt.Errorf("creating mail writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return "", nil, fmt.Errorf("creating inline part: %w", err)
	}

	var th mail.InlineHeader
	th.Set("Content-Type", "text/html; charset=utf-8")
	pw, err := tw.CreatePart(th)
	if err != nil {
		return "", nil, fmt.Errorf("creating html part: %w", err)
	}
	if _, err := io.WriteString(pw, htmlBody); err != nil {
		return "", nil, fmt.Errorf("writing html body: %w", err)
	}
	pw.Close()
	tw.Close()
	mw.Close()

	messageID, err := h.MessageID()
	if err != nil {
		return "", nil, fmt.Errorf("reading message id: %w", err)
	}

	return messageID, buf.Bytes(), nil
}

// send opens the connection and pushes the message. Implicit TLS and
// STARTTLS are both supported; which one depends on the relay config.
func (t *SMTPTransport) send(to string, body []byte) error {
	addr := t.cfg.Host + ":" + t.cfg.Port

	if t.cfg.TLS {
		return t.sendWithTLS(addr, to, body)
	}
	return t.sendWithStartTLS(addr, to, body)
}

// sendWithTLS delivers over an implicit TLS connection.
func (t *SMTPTransport) sendWithTLS(addr, to string, body []byte) error {
	tlsConfig := &tls.Config{ServerName: t.cfg.Host}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", t.cfg.Username, t.password, t.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	return t.push(client, to, body)
}

// sendWithStartTLS delivers using STARTTLS.
func (t *SMTPTransport) sendWithStartTLS(addr, to string, body []byte) error {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: t.cfg.Host}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("SMTP STARTTLS: %w", err)
	}

	auth := smtp.PlainAuth("", t.cfg.Username, t.password, t.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	return t.push(client, to, body)
}

// push sends a message using an already-authenticated SMTP client.
func (t *SMTPTransport) push(client *smtp.Client, to string, body []byte) error {
	if err := client.Mail(t.cfg.From); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}

	if _, err := writer.Write(body); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}
