// Package mail sends transactional email over SMTP.
package mail

import (
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Sender delivers a single message to one recipient.
type Sender interface {
	Send(to, subject, text, html string) error
}

// Config holds the SMTP connection settings.
type Config struct {
	Host          string
	Port          int
	User          string
	Password      string
	SenderAddress string
	SenderName    string
}

type sender struct {
	dialer        *gomail.Dialer
	senderAddress string
	senderName    string
	retryCount    int
	retryBackoff  time.Duration
	logger        *zap.Logger
}

// NewSender creates an SMTP-backed Sender. Failed deliveries are retried
// with exponential backoff.
func NewSender(cfg Config, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}

	senderAddress := cfg.SenderAddress
	if senderAddress == "" {
		senderAddress = cfg.User
	}
	senderName := cfg.SenderName
	if senderName == "" {
		senderName = "Tester"
	}

	return &sender{
		dialer:        gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		senderAddress: senderAddress,
		senderName:    senderName,
		retryCount:    3,
		retryBackoff:  100 * time.Millisecond,
		logger:        logger.Named("mail"),
	}
}

func (s *sender) Send(to, subject, text, html string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.senderAddress, s.senderName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)
	if html != "" {
		msg.AddAlternative("text/html", html)
	}

	var lastErr error
	backoff := s.retryBackoff

	for attempt := 0; attempt <= s.retryCount; attempt++ {
		err := s.dialer.DialAndSend(msg)
		if err == nil {
			s.logger.Debug("mail sent",
				zap.String("subject", subject),
				zap.Int("attempt", attempt+1),
			)
			return nil
		}

		lastErr = err
		if attempt < s.retryCount {
			s.logger.Warn("mail send attempt failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	s.logger.Error("failed to send mail",
		zap.Int("attempts", s.retryCount+1),
		zap.Error(lastErr),
	)
	return lastErr
}

// Discard is a Sender that silently drops every message. It stands in for
// SMTP in tests and in environments without mail credentials.
type Discard struct{}

func (Discard) Send(string, string, string, string) error { return nil }
