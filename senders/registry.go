package senders

import (
	"context"
	"net/http"

	"github.com/fiffu/manzil/config"
	"github.com/fiffu/manzil/lib/cms"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Sender interface {
	SendContactNotice(ctx context.Context, recipient string, msg cms.ContactMessage) (string, error)
}

type Registry map[string]Sender

// NewSenderRegistry returns the configured senders. Email is only present
// when mailgun credentials are set.
func NewSenderRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Registry {
	reg := Registry{}
	if cfg.MailEnabled() {
		reg["email"] = &mailgunSender{base{log, cfg, transport}}
	} else {
		log.Sugar().Infow("Mailgun not configured, e-mail notifications disabled")
	}
	return reg
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}
