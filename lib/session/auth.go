package session

import (
	"context"
	"strings"

	"github.com/fiffu/manzil/lib/cms"
	"github.com/fiffu/manzil/lib/models"
	"go.uber.org/zap"
)

// Backend is the CMS's authentication surface.
type Backend interface {
	Register(ctx context.Context, username, email, password string) (*cms.AuthResult, error)
	Login(ctx context.Context, identifier, password string) (*cms.AuthResult, error)
}

// Auth signs a client in and out. It is the only writer of the client's
// session Context.
type Auth struct {
	backend Backend
	session *Context
	log     *zap.Logger
}

func NewAuth(backend Backend, session *Context, log *zap.Logger) *Auth {
	return &Auth{backend, session, log}
}

func (a *Auth) Session() *Context {
	return a.session
}

func (a *Auth) Current(ctx context.Context) (*models.Session, bool) {
	return a.session.Current(ctx)
}

func (a *Auth) Register(ctx context.Context, r Registration) (*models.Session, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	res, err := a.backend.Register(ctx, strings.TrimSpace(r.Name), strings.TrimSpace(r.Email), r.Password)
	if err != nil {
		return nil, err
	}
	return a.open(ctx, res)
}

func (a *Auth) Login(ctx context.Context, email, password string) (*models.Session, error) {
	if err := validateLogin(email, password); err != nil {
		return nil, err
	}
	res, err := a.backend.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	return a.open(ctx, res)
}

func (a *Auth) open(ctx context.Context, res *cms.AuthResult) (*models.Session, error) {
	s := &models.Session{Token: res.Token, User: res.User}
	if err := a.session.write(ctx, s); err != nil {
		a.log.Sugar().Errorw("Failed to persist session", "user_id", s.User.ID, "err", err)
		return nil, err
	}
	a.log.Sugar().Infow("Session opened", "user_id", s.User.ID)
	return s, nil
}

// Logout clears the session. It is safe to call without a session.
func (a *Auth) Logout(ctx context.Context) error {
	if err := a.session.clear(ctx); err != nil {
		a.log.Sugar().Errorw("Failed to clear session", "err", err)
		return err
	}
	return nil
}

// UpdateSubscription stores sub on the signed-in user's profile.
func (a *Auth) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	s, err := a.session.Require(ctx)
	if err != nil {
		return err
	}
	s.User.Subscription = &sub
	return a.session.write(ctx, s)
}
