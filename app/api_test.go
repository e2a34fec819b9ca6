package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fiffu/manzil/config"
	"github.com/fiffu/manzil/lib/cms"
	"github.com/fiffu/manzil/lib/contact"
	"github.com/fiffu/manzil/lib/storage"
	"github.com/fiffu/manzil/lib/subscription"
	"github.com/fiffu/manzil/senders"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const magazinesJSON = `{"data": [
	{"id": 2, "attributes": {
		"Title": "Winter Issue",
		"publishedAt": "2023-12-01T00:00:00.000Z",
		"CoverImage": {"data": {"id": 7, "attributes": {"url": "/uploads/winter.jpg"}}},
		"Ebook": {"data": null},
		"category": {"data": {"id": 2, "attributes": {"name": "Politics"}}}
	}},
	{"id": 1, "attributes": {
		"Title": "Spring Issue",
		"publishedAt": "2024-03-01T00:00:00.000Z",
		"CoverImage": {"data": {"id": 5, "attributes": {"url": "/uploads/spring.jpg"}}},
		"Ebook": {"data": {"id": 6, "attributes": {"url": "/uploads/spring.pdf"}}},
		"category": {"data": {"id": 1, "attributes": {"name": "Culture"}}}
	}}
], "meta": {}}`

const articlesJSON = `{"data": [
	{"id": 1, "attributes": {
		"Title": "Editorial",
		"Description": "From the **desk**",
		"PublishedDate": "2024-03-01",
		"Content": [{"type": "paragraph", "children": [{"type": "text", "text": "Welcome to the spring issue."}]}]
	}}
], "meta": {}}`

const eventsJSON = `{"data": [
	{"id": 1, "attributes": {
		"Title": "Book fair",
		"Date": "2024-05-10",
		"Description": [{"type": "paragraph", "children": [{"type": "text", "text": "Stalls all day"}]}],
		"Link": "https://fair.example.com"
	}}
], "meta": {}}`

// fakeCMS serves the CMS endpoints the portal uses, with bookmarks,
// payments and contact messages kept in memory.
type fakeCMS struct {
	mu            sync.Mutex
	bookmarks     map[uint]uint // bookmark ID -> magazine ID
	nextID        uint
	payments      int
	userUpdates   int
	contacts      int
	failUserWrite bool
}

func newFakeCMS() *fakeCMS {
	return &fakeCMS{bookmarks: make(map[uint]uint), nextID: 100}
}

type cmsCounts struct {
	bookmarks, payments, userUpdates, contacts int
}

func (f *fakeCMS) counts() cmsCounts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cmsCounts{len(f.bookmarks), f.payments, f.userUpdates, f.contacts}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func (f *fakeCMS) router() http.Handler {
	r := chi.NewRouter()
	static := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) { writeJSON(w, 200, body) }
	}
	r.Get("/api/magazines", static(magazinesJSON))
	r.Get("/api/articles", static(articlesJSON))
	r.Get("/api/events", static(eventsJSON))
	r.Get("/api/categories", static(`{"data": [{"id": 1, "attributes": {"name": "Culture"}}]}`))

	r.Post("/api/auth/local", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"jwt": "jwt-3", "user": {"id": 3, "username": "asha", "email": "asha@example.com"}}`)
	})

	r.Get("/api/bookmarks", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		only := r.URL.Query().Get("filters[magazine][id][$eq]")
		var entries []string
		for id, mag := range f.bookmarks {
			if only != "" && only != fmt.Sprint(mag) {
				continue
			}
			entries = append(entries, fmt.Sprintf(
				`{"id": %d, "attributes": {"user": {"data": {"id": 3}}, "magazine": {"data": {"id": %d}}}}`, id, mag))
		}
		writeJSON(w, 200, `{"data": [`+strings.Join(entries, ",")+`]}`)
	})
	r.Post("/api/bookmarks", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Data struct {
				Magazine uint `json:"magazine"`
			} `json:"data"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		f.bookmarks[f.nextID] = body.Data.Magazine
		writeJSON(w, 200, fmt.Sprintf(`{"data": {"id": %d, "attributes": {}}}`, f.nextID))
	})
	r.Delete("/api/bookmarks/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for id := range f.bookmarks {
			if fmt.Sprint(id) == chi.URLParam(r, "id") {
				delete(f.bookmarks, id)
			}
		}
		writeJSON(w, 200, `{"data": null}`)
	})

	r.Post("/api/payments", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.payments++
		f.mu.Unlock()
		writeJSON(w, 200, `{"data": {"id": 1}}`)
	})
	r.Put("/api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failUserWrite {
			writeJSON(w, 500, `{"error": {"status": 500, "message": "Internal Server Error"}}`)
			return
		}
		f.userUpdates++
		writeJSON(w, 200, `{"id": 3}`)
	})
	r.Post("/api/contactmessage", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.contacts++
		f.mu.Unlock()
		writeJSON(w, 200, `{"data": {"id": 1}}`)
	})
	return r
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, migrate(db))
	return db
}

type fixture struct {
	srv    *httptest.Server
	fake   *fakeCMS
	ledger *subscription.Ledger
}

func setupApp(t *testing.T) fixture {
	fake := newFakeCMS()
	cmsSrv := httptest.NewServer(fake.router())
	t.Cleanup(cmsSrv.Close)

	cfg := &config.Config{
		SessionSecret: "test-session-secret",
		APIURL:        cmsSrv.URL + "/api",
		MediaURL:      cmsSrv.URL,
	}
	cfg.Payment.Key = "rzp_test_key"
	cfg.Payment.Currency = "INR"
	cfg.Payment.Merchant = "Manzil Subscription"

	log := zap.NewNop()
	lc := fxtest.NewLifecycle(t)
	db := setupTestDB(t)
	ledger := NewLedger(db)

	cmsClient := cms.New(cfg.APIURL, cfg.MediaURL, log, nil)
	clients := NewClients(lc, cfg, log, cmsClient, NewClientStorage(db), ledger)
	contactSvc := contact.New(cmsClient, senders.Registry{}, "", log)
	svc := NewService(lc, cfg, log, cmsClient, contactSvc, clients)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	srv := httptest.NewServer(router(log, svc))
	t.Cleanup(srv.Close)
	return fixture{srv, fake, ledger}
}

// browser keeps cookies between requests like a real one does.
type browser struct {
	t    *testing.T
	base string
	http *http.Client
}

func (f fixture) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t, f.srv.URL, &http.Client{Jar: jar}}
}

func (b *browser) do(method, path string, body any, header ...string) *http.Response {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		rd = strings.NewReader(string(raw))
	}
	req, err := http.NewRequest(method, b.base+path, rd)
	require.NoError(b.t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := b.http.Do(req)
	require.NoError(b.t, err)
	b.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (b *browser) login() {
	resp := b.do("POST", "/api/auth/login", map[string]string{"email": "asha@example.com", "password": "abc1@"})
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	f := setupApp(t)
	resp := f.browser(t).do("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListMagazines(t *testing.T) {
	f := setupApp(t)
	b := f.browser(t)

	resp := b.do("GET", "/api/magazines", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	etag := resp.Header.Get("ETag")
	assert.NotEmpty(t, etag)

	mags := decode[[]MagazineView](t, resp)
	require.Len(t, mags, 2)
	assert.Equal(t, uint(1), mags[0].ID)
	assert.True(t, mags[0].Readable)
	assert.True(t, strings.HasSuffix(mags[0].PDFURL, "/uploads/spring.pdf"))
	assert.Equal(t, "2024", mags[0].Year)
	assert.False(t, mags[1].Readable)
	assert.False(t, mags[0].Bookmarked)

	resp = b.do("GET", "/api/magazines", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	mags = decode[[]MagazineView](t, b.do("GET", "/api/magazines?category=Politics", nil))
	require.Len(t, mags, 1)
	assert.Equal(t, "Winter Issue", mags[0].Title)

	mags = decode[[]MagazineView](t, b.do("GET", "/api/magazines?year=2024&q=spring", nil))
	require.Len(t, mags, 1)
	assert.Equal(t, uint(1), mags[0].ID)
}

func TestListArticlesAndEvents(t *testing.T) {
	f := setupApp(t)
	b := f.browser(t)

	articles := decode[[]ArticleView](t, b.do("GET", "/api/articles", nil))
	require.Len(t, articles, 1)
	assert.Equal(t, "Welcome to the spring issue.", articles[0].Excerpt)
	assert.Contains(t, articles[0].DescriptionHTML, "<strong>desk</strong>")
	assert.Equal(t, "2024", articles[0].Year)

	events := decode[[]EventView](t, b.do("GET", "/api/events", nil))
	require.Len(t, events, 1)
	assert.Equal(t, "May 10, 2024", events[0].DateLabel)
	assert.True(t, events[0].LinkValid)
	assert.Equal(t, "Stalls all day", events[0].Description)

	years := decode[[]string](t, b.do("GET", "/api/archive/years", nil))
	assert.Equal(t, []string{"2024", "2023", "2022", "2021", "2020"}, years)

	categories := decode[[]CategoryView](t, b.do("GET", "/api/categories", nil))
	assert.Equal(t, []CategoryView{{ID: 1, Name: "Culture"}}, categories)
}

func TestLogin_Validation(t *testing.T) {
	f := setupApp(t)
	b := f.browser(t)

	resp := b.do("POST", "/api/auth/login", map[string]string{"email": "asha@example.com", "password": "weak"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[ErrorView](t, resp)
	assert.Equal(t, "password", body.Field)

	resp = b.do("POST", "/api/auth/login", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSession_PerBrowser(t *testing.T) {
	f := setupApp(t)
	signedIn := f.browser(t)
	signedIn.login()

	view := decode[SessionView](t, signedIn.do("GET", "/api/auth/session", nil))
	assert.True(t, view.Active)
	assert.Equal(t, "asha@example.com", view.User.Email)
	assert.Len(t, view.Plans, 3)

	other := decode[SessionView](t, f.browser(t).do("GET", "/api/auth/session", nil))
	assert.False(t, other.Active)

	resp := signedIn.do("POST", "/api/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	view = decode[SessionView](t, signedIn.do("GET", "/api/auth/session", nil))
	assert.False(t, view.Active)
}

func TestBookmarks(t *testing.T) {
	f := setupApp(t)
	b := f.browser(t)

	resp := b.do("POST", "/api/bookmarks/1", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, f.fake.counts().bookmarks)

	b.login()

	toggled := decode[map[string]any](t, b.do("POST", "/api/bookmarks/1", nil))
	assert.Equal(t, true, toggled["bookmarked"])
	assert.Equal(t, 1, f.fake.counts().bookmarks)

	saved := decode[[]MagazineView](t, b.do("GET", "/api/bookmarks", nil))
	require.Len(t, saved, 1)
	assert.Equal(t, uint(1), saved[0].ID)

	mags := decode[[]MagazineView](t, b.do("GET", "/api/magazines", nil))
	assert.True(t, mags[0].Bookmarked)
	assert.False(t, mags[1].Bookmarked)

	toggled = decode[map[string]any](t, b.do("POST", "/api/bookmarks/1", nil))
	assert.Equal(t, false, toggled["bookmarked"])
	assert.Equal(t, 0, f.fake.counts().bookmarks)

	resp = b.do("POST", "/api/bookmarks/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestViewer(t *testing.T) {
	f := setupApp(t)
	b := f.browser(t)

	resp := b.do("GET", "/api/viewer", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = b.do("POST", "/api/viewer/open", map[string]uint{"magazine_id": 2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = b.do("POST", "/api/viewer/open", map[string]uint{"magazine_id": 99})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = b.do("POST", "/api/viewer/open", map[string]uint{"magazine_id": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	spread := decode[map[string]any](t, b.do("POST", "/api/viewer/loaded", map[string]int{"total": 5}))
	assert.Equal(t, float64(3), spread["count"])

	spread = decode[map[string]any](t, b.do("POST", "/api/viewer/next", nil))
	assert.Equal(t, float64(1), spread["index"])
	left := spread["left"].(map[string]any)
	assert.Equal(t, float64(3), left["number"])
	assert.Equal(t, float64(600), left["width"])

	spread = decode[map[string]any](t, b.do("POST", "/api/viewer/seek", map[string]int{"index": 10}))
	assert.Equal(t, float64(2), spread["index"])

	spread = decode[map[string]any](t, b.do("POST", "/api/viewer/previous", nil))
	assert.Equal(t, float64(1), spread["index"])

	resp = b.do("DELETE", "/api/viewer", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = b.do("POST", "/api/viewer/next", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSubscription(t *testing.T) {
	f := setupApp(t)
	b := f.browser(t)

	resp := b.do("POST", "/api/subscription/checkout", map[string]string{"plan": "Monthly"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	b.login()

	resp = b.do("POST", "/api/subscription/checkout", map[string]string{"plan": "Lifetime"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	charge := decode[subscription.Charge](t, b.do("POST", "/api/subscription/checkout", map[string]string{"plan": "Monthly"}))
	assert.Equal(t, int64(24900), charge.Amount)
	assert.Equal(t, "asha@example.com", charge.Prefill.Email)

	resp = b.do("POST", "/api/subscription/confirm", map[string]string{"plan": "Monthly", "transaction_id": "pay_1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := f.fake.counts()
	assert.Equal(t, 1, c.payments)
	assert.Equal(t, 1, c.userUpdates)

	view := decode[SessionView](t, b.do("GET", "/api/auth/session", nil))
	assert.True(t, view.Subscribed)
	assert.Empty(t, view.Plans)
}

func TestSubscription_Reconciliation(t *testing.T) {
	f := setupApp(t)
	f.fake.failUserWrite = true
	b := f.browser(t)
	b.login()

	resp := b.do("POST", "/api/subscription/confirm", map[string]string{"plan": "Annual", "transaction_id": "pay_2"})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := decode[ErrorView](t, resp)
	assert.Equal(t, subscription.ErrReconciliation.Error(), body.Error)

	pending, err := f.ledger.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "pay_2", pending[0].TransactionID)
	assert.Equal(t, subscription.StageProfile, pending[0].Stage)
}

func TestContact(t *testing.T) {
	f := setupApp(t)
	b := f.browser(t)

	resp := b.do("POST", "/api/contact", map[string]string{"name": "Ravi", "email": "nope"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[ErrorView](t, resp)
	assert.Equal(t, "Enter a valid email address.", body.Fields["email"])
	assert.Equal(t, 0, f.fake.counts().contacts)

	resp = b.do("POST", "/api/contact", map[string]string{
		"name": "Ravi", "email": "ravi@example.com", "mobile": "9876543210", "message": "Hello",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, f.fake.counts().contacts)
}

func TestNewClientStorage_IsolatesClients(t *testing.T) {
	s := NewClientStorage(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, s.For("a").Set(ctx, "token", "x"))
	_, ok, err := s.For("b").Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)
	var _ storage.Store = s.For("a")
}
