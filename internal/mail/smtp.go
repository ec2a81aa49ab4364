package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

var (
	ErrNoFromAddress = errors.New("mail: no 'from' address defined")
	ErrNoToAddress   = errors.New("mail: no 'to' address defined")
	ErrNoSmarthost   = errors.New("mail: smtp host or port not defined")
)

// Config locates the SMTP smarthost.
type Config struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// SMTPSender delivers invitations synchronously. STARTTLS is used when the server offers it.
type SMTPSender struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewSMTPSender constructs an SMTPSender.
func NewSMTPSender(cfg Config, logger *slog.Logger) *SMTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{cfg: cfg, logger: logger, now: time.Now}
}

// SendInvite renders and transmits an invitation.
func (s *SMTPSender) SendInvite(ctx context.Context, inv Invite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := parseSingle(s.cfg.From, ErrNoFromAddress)
	if err != nil {
		return err
	}
	to, err := parseSingle(inv.To, ErrNoToAddress)
	if err != nil {
		return err
	}
	if s.cfg.Host == "" || s.cfg.Port <= 0 {
		return ErrNoSmarthost
	}
	htmlBody, plainBody, err := renderInvite(inv)
	if err != nil {
		return fmt.Errorf("mail: render invite: %w", err)
	}

	msg := s.compose(from, to, htmlBody, plainBody)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.LocalName = hostname()
	d.TLSConfig = &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}

	// DialAndSend ignores ctx; the caller stops waiting once ctx is done.
	done := make(chan error, 1)
	go func() { done <- d.DialAndSend(msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mail: send: %w", err)
		}
		s.logger.Debug("invitation sent", slog.String("to", to))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SMTPSender) compose(from, to, htmlBody, plainBody string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", inviteSubject)
	m.SetHeader("Message-Id", fmt.Sprintf("<%s@%s>", uuid.NewString(), hostname()))
	m.SetDateHeader("Date", s.now())
	// Preferred alternative goes last.
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)
	return m
}

func parseSingle(raw string, missing error) (string, error) {
	if raw == "" {
		return "", missing
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", fmt.Errorf("mail: parse address %q: %w", raw, err)
	}
	return addr.Address, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "localhost.localdomain"
	}
	return h
}
