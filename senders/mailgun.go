package senders

import (
	"context"
	"time"

	"github.com/fiffu/manzil/lib/cms"
	"github.com/fiffu/manzil/senders/email"
	"github.com/mailgun/mailgun-go/v4"
)

type mailgunSender struct {
	base
}

func (e *mailgunSender) SendContactNotice(ctx context.Context, recipient string, msg cms.ContactMessage) (string, error) {
	format := &email.ContactNoticeFormat{Message: msg}
	id, err := e.Send(ctx, format.Subject(), format.Body(), recipient)
	if err != nil {
		e.log.Sugar().Errorw("Failed to send contact notice", "recipient", recipient, "err", err)
		return "", err
	}
	e.log.Sugar().Infow("Sent contact notice", "recipient", recipient, "id", id)
	return id, nil
}

func (e *mailgunSender) Send(ctx context.Context, subject, body, recipient string) (string, error) {
	mg := mailgun.NewMailgun(e.cfg.Mailgun.Domain, e.cfg.Mailgun.APIKey)
	mg.Client().Transport = e.transport

	// Create message with empty body first.
	message := mg.NewMessage(e.cfg.Mailgun.SenderFrom, subject, "", recipient)
	// SetHtml with the payload proper. This will assign the MIME type properly.
	message.SetHtml(body)

	timeout := time.Duration(e.cfg.Mailgun.TimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, id, err := mg.Send(ctx, message)
	return id, err
}
