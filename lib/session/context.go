// Package session holds the signed-in state of one client. Context is what
// every consumer reads; Auth is the only writer.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/fiffu/manzil/lib/models"
	"github.com/fiffu/manzil/lib/storage"
	"go.uber.org/zap"
)

const (
	tokenKey = "token"
	userKey  = "user"
)

// ErrLoginRequired is returned by operations that need a session when
// there is none.
var ErrLoginRequired = errors.New("please log in to continue")

type Context struct {
	store storage.Store
	log   *zap.Logger

	mu     sync.Mutex
	subs   map[int]func(*models.Session)
	nextID int
}

func NewContext(store storage.Store, log *zap.Logger) *Context {
	return &Context{
		store: store,
		log:   log,
		subs:  make(map[int]func(*models.Session)),
	}
}

// Current reads the session from client storage. Unreadable state counts
// as no session.
func (c *Context) Current(ctx context.Context) (*models.Session, bool) {
	token, ok, err := c.store.Get(ctx, tokenKey)
	if err != nil {
		c.log.Sugar().Errorw("Failed to read session token", "err", err)
		return nil, false
	}
	if !ok || token == "" {
		return nil, false
	}

	raw, ok, err := c.store.Get(ctx, userKey)
	if err != nil || !ok {
		c.log.Sugar().Warnw("Session token without user profile", "err", err)
		return nil, false
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		c.log.Sugar().Warnw("Unreadable session user profile", "err", err)
		return nil, false
	}
	return &models.Session{Token: token, User: user}, true
}

func (c *Context) Active(ctx context.Context) bool {
	_, ok := c.Current(ctx)
	return ok
}

// Require returns the current session or ErrLoginRequired.
func (c *Context) Require(ctx context.Context) (*models.Session, error) {
	s, ok := c.Current(ctx)
	if !ok {
		return nil, ErrLoginRequired
	}
	return s, nil
}

// Subscribe registers fn to be called after every session change with the
// new session, or nil after logout. Calling cancel unregisters it.
func (c *Context) Subscribe(fn func(*models.Session)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Context) write(ctx context.Context, s *models.Session) error {
	user, err := json.Marshal(s.User)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, tokenKey, s.Token); err != nil {
		return err
	}
	if err := c.store.Set(ctx, userKey, string(user)); err != nil {
		return err
	}
	c.notify(s)
	return nil
}

func (c *Context) clear(ctx context.Context) error {
	err := c.store.Delete(ctx, tokenKey, userKey)
	c.notify(nil)
	return err
}

func (c *Context) notify(s *models.Session) {
	c.mu.Lock()
	subs := make([]func(*models.Session), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
