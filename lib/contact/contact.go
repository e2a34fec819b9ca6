// Package contact accepts messages from the portal's contact form.
package contact

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/fiffu/manzil/config"
	"github.com/fiffu/manzil/lib/cms"
	"github.com/fiffu/manzil/senders"
	"go.uber.org/zap"
)

var (
	emailPattern  = regexp.MustCompile(`\S+@\S+\.\S+`)
	mobilePattern = regexp.MustCompile(`^\d{10}$`)
)

// FieldErrors maps a form field to what is wrong with it.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = fe[f]
	}
	return strings.Join(msgs, " ")
}

type Form struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Mobile  string `json:"mobile"`
	Message string `json:"message"`
}

// Validate returns nil when the form can be submitted.
func (f Form) Validate() FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Name is required."
	}
	switch email := strings.TrimSpace(f.Email); {
	case email == "":
		errs["email"] = "Email is required."
	case !emailPattern.MatchString(email):
		errs["email"] = "Enter a valid email address."
	}
	switch mobile := strings.TrimSpace(f.Mobile); {
	case mobile == "":
		errs["mobile"] = "Mobile number is required."
	case !mobilePattern.MatchString(mobile):
		errs["mobile"] = "Enter a valid 10-digit mobile number."
	}
	if strings.TrimSpace(f.Message) == "" {
		errs["message"] = "Message cannot be empty."
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type Backend interface {
	SubmitContactMessage(ctx context.Context, msg cms.ContactMessage) error
}

type Service struct {
	backend Backend
	senders senders.Registry
	inbox   string
	log     *zap.Logger
}

func NewService(backend *cms.Client, registry senders.Registry, cfg *config.Config, log *zap.Logger) *Service {
	return New(backend, registry, cfg.ContactInbox, log)
}

func New(backend Backend, registry senders.Registry, inbox string, log *zap.Logger) *Service {
	return &Service{backend, registry, inbox, log}
}

// Submit validates the form and stores it with the CMS. The editors are
// then notified by e-mail when an inbox is configured; a failed
// notification does not fail the submission.
func (s *Service) Submit(ctx context.Context, f Form) error {
	if errs := f.Validate(); errs != nil {
		return errs
	}
	msg := cms.ContactMessage{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Mobile:  strings.TrimSpace(f.Mobile),
		Message: f.Message,
	}
	if err := s.backend.SubmitContactMessage(ctx, msg); err != nil {
		return err
	}
	s.log.Sugar().Infow("Contact message submitted", "email", msg.Email)

	if sender, ok := s.senders["email"]; ok && s.inbox != "" {
		if _, err := sender.SendContactNotice(ctx, s.inbox, msg); err != nil {
			s.log.Sugar().Warnw("Contact notice not sent", "err", err)
		}
	}
	return nil
}
