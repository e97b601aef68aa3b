package offer

import (
	"context"

	"github.com/futig/workspace-agent/internal/entity"
)

type EmailSender interface {
	Send(ctx context.Context, req entity.SendEmailRequest) error
}
