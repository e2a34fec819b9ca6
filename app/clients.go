package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/fiffu/manzil/config"
	"github.com/fiffu/manzil/lib/bookmarks"
	"github.com/fiffu/manzil/lib/cms"
	"github.com/fiffu/manzil/lib/pager"
	"github.com/fiffu/manzil/lib/session"
	"github.com/fiffu/manzil/lib/storage"
	"github.com/fiffu/manzil/lib/subscription"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	cookieName  = "manzil"
	clientIDKey = "client_id"
	cookieAge   = 30 * 24 * 60 * 60
)

// Client is the state kept for one browser.
type Client struct {
	ID           string
	Auth         *session.Auth
	Bookmarks    *bookmarks.Manager
	Pager        *pager.Pager
	Subscription *subscription.Flow

	lastSeen time.Time
}

// Clients tells browsers apart by a client ID kept in a signed cookie.
type Clients struct {
	log      *zap.Logger
	cms      *cms.Client
	storage  *storage.ClientStorage
	ledger   *subscription.Ledger
	merchant subscription.Merchant
	cookies  sessions.Store

	mu   sync.Mutex
	byID map[string]*Client
	now  func() time.Time
}

func NewClients(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, cmsClient *cms.Client, store *storage.ClientStorage, ledger *subscription.Ledger) *Clients {
	cookies := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cookieAge,
		HttpOnly: true,
		Secure:   cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	}

	cs := &Clients{
		log:     log,
		cms:     cmsClient,
		storage: store,
		ledger:  ledger,
		merchant: subscription.Merchant{
			Key:      cfg.Payment.Key,
			Currency: cfg.Payment.Currency,
			Name:     cfg.Payment.Merchant,
		},
		cookies: cookies,
		byID:    make(map[string]*Client),
		now:     time.Now,
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			cs.close()
			return nil
		},
	})
	return cs
}

// Get returns the state of client id, creating it on first use.
func (cs *Clients) Get(id string) *Client {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if c, ok := cs.byID[id]; ok {
		c.lastSeen = cs.now()
		return c
	}

	sess := session.NewContext(cs.storage.For(id), cs.log)
	auth := session.NewAuth(cs.cms, sess, cs.log)
	c := &Client{
		ID:           id,
		Auth:         auth,
		Bookmarks:    bookmarks.NewManager(cs.cms, sess, cs.log),
		Pager:        pager.New(nil, cs.log),
		Subscription: subscription.NewFlow(cs.cms, auth, cs.ledger, cs.merchant, nil, cs.log),
		lastSeen:     cs.now(),
	}
	cs.byID[id] = c
	return c
}

// evictIdle drops the in-memory state of clients not seen since cutoff.
// Their sessions stay in client storage.
func (cs *Clients) evictIdle(cutoff time.Time) (evicted, retained int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for id, c := range cs.byID {
		if c.lastSeen.Before(cutoff) {
			c.Bookmarks.Close()
			delete(cs.byID, id)
			evicted++
		} else {
			retained++
		}
	}
	return evicted, retained
}

func (cs *Clients) close() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for id, c := range cs.byID {
		c.Bookmarks.Close()
		delete(cs.byID, id)
	}
}

type clientKey struct{}

// Identify attaches the request's Client to its context, issuing a client
// ID cookie to browsers that have none.
func (cs *Clients) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := cs.cookies.Get(r, cookieName)
		if err != nil {
			cs.log.Sugar().Debugw("Discarding unreadable client cookie", "err", err)
		}

		id, _ := sess.Values[clientIDKey].(string)
		if id == "" {
			id = uuid.NewString()
			sess.Values[clientIDKey] = id
			if err := sess.Save(r, w); err != nil {
				cs.log.Sugar().Errorw("Failed to issue client cookie", "err", err)
			}
		}

		ctx := context.WithValue(r.Context(), clientKey{}, cs.Get(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientFrom(ctx context.Context) *Client {
	c, _ := ctx.Value(clientKey{}).(*Client)
	return c
}
