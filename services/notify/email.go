package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("siiau.services.notify")

var ErrNoAddress = errors.New("no email address for user")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	// SenderName is shown next to EmailAddress in the From header.
	SenderName string `json:"sender_name"`
}

func (c SmtpConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}

type sendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

func defaultSend(mail *email.Email, addr string, auth smtp.Auth) error {
	return mail.Send(addr, auth)
}

// EmailNotifier delivers messages over smtp. User ids are looked up in
// Addresses, ids that already look like an email address are used as is.
type EmailNotifier struct {
	config    SmtpConfig
	addresses map[string]string
	send      sendFunc
}

func NewEmailNotifier(config SmtpConfig, addresses map[string]string) EmailNotifier {
	if config.SenderName == "" {
		config.SenderName = "SIIAU Monitor"
	}
	return EmailNotifier{
		config:    config,
		addresses: addresses,
		send:      defaultSend,
	}
}

func (n EmailNotifier) address(user string) (string, error) {
	if addr, ok := n.addresses[user]; ok {
		return addr, nil
	}
	if strings.Contains(user, "@") {
		return user, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoAddress, user)
}

func (n EmailNotifier) Notify(ctx context.Context, msg Message) error {
	_, span := tracer.Start(ctx, "EmailNotifier.Notify")
	defer span.End()

	to, err := n.address(msg.To)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown recipient")
		return err
	}
	span.SetAttributes(attribute.String("to", to))

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("%s <%s>", n.config.SenderName, n.config.EmailAddress)
	mail.To = []string{to}
	mail.Subject = msg.Subject
	mail.Text = []byte(msg.Body)

	err = n.send(
		mail,
		n.config.addr(),
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = n.send(mail, n.config.addr(), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}
