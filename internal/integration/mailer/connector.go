package mailer

import (
	"context"
	"fmt"

	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Connector delivers HTML email over SMTP.
type Connector struct {
	sender Sender
	from   string
}

func NewConnector(cfg config.SMTPConfig) *Connector {
	return &Connector{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (c *Connector) Send(ctx context.Context, req entity.SendEmailRequest) error {
	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", req.To)
	m.SetHeader("Subject", req.Subject)
	m.SetBody("text/html", req.HTML)

	if err := c.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", req.To, err)
	}

	ctxzap.Info(ctx, "email sent", zap.String("to", req.To), zap.String("subject", req.Subject))
	return nil
}
