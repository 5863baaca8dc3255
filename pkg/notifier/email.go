package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/blockwatch/sentinel/internal/model"
)

// emailNotifier opens one SMTP session per send and delivers to every
// recipient within it (spec.md §4.8): implicit TLS on the default port
// 465, STARTTLS negotiated otherwise.
type emailNotifier struct {
	cfg model.EmailConfig
}

func (n *emailNotifier) Send(ctx context.Context, payload Payload) model.NotifyOutcome {
	ctx, cancel := context.WithTimeout(ctx, EmailTimeout)
	defer cancel()

	done := make(chan model.NotifyOutcome, 1)
	go func() { done <- n.sendSync(payload) }()

	select {
	case outcome := <-done:
		return outcome
	case <-ctx.Done():
		return model.NotifyRetryable
	}
}

func (n *emailNotifier) sendSync(payload Payload) model.NotifyOutcome {
	addr := net.JoinHostPort(n.cfg.Host, portOrDefault(n.cfg.Port))

	var client *smtp.Client
	var err error
	if n.cfg.Port == model.DefaultEmailPort || n.cfg.Port == 0 {
		var conn *tls.Conn
		conn, err = tls.Dial("tcp", addr, &tls.Config{ServerName: n.cfg.Host})
		if err != nil {
			return model.NotifyRetryable
		}
		client, err = smtp.NewClient(conn, n.cfg.Host)
	} else {
		client, err = smtp.Dial(addr)
		if err == nil {
			err = client.StartTLS(&tls.Config{ServerName: n.cfg.Host})
		}
	}
	if err != nil {
		return model.NotifyRetryable
	}
	defer client.Close()

	if n.cfg.Username != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return model.NotifyRetryable
		}
	}

	if err := client.Mail(n.cfg.Sender); err != nil {
		return model.NotifyRetryable
	}
	for _, rcpt := range n.cfg.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return model.NotifyTerminal
		}
	}

	w, err := client.Data()
	if err != nil {
		return model.NotifyRetryable
	}
	message := buildMessage(n.cfg.Sender, n.cfg.Recipients, payload.Title, payload.Body)
	if _, err := w.Write([]byte(message)); err != nil {
		return model.NotifyRetryable
	}
	if err := w.Close(); err != nil {
		return model.NotifyRetryable
	}

	_ = client.Quit()
	return model.NotifyOk
}

func buildMessage(from string, to []string, subject, body string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return sb.String()
}

func portOrDefault(port int) string {
	if port == 0 {
		port = model.DefaultEmailPort
	}
	return fmt.Sprintf("%d", port)
}
