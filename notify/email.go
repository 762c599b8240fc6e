// Package notify mails a digest of unavailable listings after a run.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/aluiziolira/go-scrape-stock/config"
	"github.com/aluiziolira/go-scrape-stock/models"
)

type sendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

// EmailNotifier sends one plain-text digest per run over SMTP.
type EmailNotifier struct {
	cfg  config.NotifyConfig
	send sendFunc
}

// NewEmailNotifier returns nil when cfg lacks a server, a sender or recipients.
func NewEmailNotifier(cfg config.NotifyConfig) *EmailNotifier {
	if !cfg.Enabled() {
		return nil
	}
	return &EmailNotifier{
		cfg: cfg,
		send: func(mail *email.Email, addr string, auth smtp.Auth) error {
			return mail.Send(addr, auth)
		},
	}
}

// Notify mails every out-of-stock record found in outcomes. Nothing is sent
// when no brand has unavailable listings. A nil notifier is a no-op.
func (n *EmailNotifier) Notify(ctx context.Context, outcomes []models.BrandOutcome) error {
	if n == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, total := Digest(outcomes)
	if total == 0 {
		slog.Debug("no unavailable listings, skipping notification")
		return nil
	}

	mail := email.NewEmail()
	mail.From = n.cfg.From
	mail.To = n.cfg.To
	mail.Subject = fmt.Sprintf("%d listings out of stock", total)
	mail.Text = []byte(body)

	err := n.send(mail, n.cfg.SMTPAddr, n.auth())
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = n.send(mail, n.cfg.SMTPAddr, nil)
	}
	if err != nil {
		return fmt.Errorf("send notification via %s: %w", n.cfg.SMTPAddr, err)
	}

	slog.Info("notification sent", slog.Int("listings", total), slog.Int("recipients", len(n.cfg.To)))
	return nil
}

func (n *EmailNotifier) auth() smtp.Auth {
	if n.cfg.Username == "" {
		return nil
	}
	host, _, err := net.SplitHostPort(n.cfg.SMTPAddr)
	if err != nil {
		host = n.cfg.SMTPAddr
	}
	return smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, host)
}

// Digest renders the plain-text body and returns the number of listings in it.
func Digest(outcomes []models.BrandOutcome) (string, int) {
	var b strings.Builder
	total := 0
	for _, outcome := range outcomes {
		if len(outcome.OutOfStock) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s (%d)\n", outcome.Brand, len(outcome.OutOfStock))
		for _, r := range outcome.OutOfStock {
			fmt.Fprintf(&b, "  - %s, %s, %s\n    %s\n", r.ProductName, r.Quantity, r.Price, r.ProductURL)
		}
		b.WriteString("\n")
		total += len(outcome.OutOfStock)
	}
	return b.String(), total
}
