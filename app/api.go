package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fiffu/manzil/config"
	"github.com/fiffu/manzil/lib/cms"
	"github.com/fiffu/manzil/lib/contact"
	"github.com/fiffu/manzil/lib/listing"
	"github.com/fiffu/manzil/lib/models"
	"github.com/fiffu/manzil/lib/pager"
	"github.com/fiffu/manzil/lib/session"
	"github.com/fiffu/manzil/lib/subscription"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const msgUnexpected = "Something went wrong. Please try again later."

func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *Service) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(log, svc)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Sugar().Infof("Listening on %s", addr)
			go srv.ListenAndServe()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(log *zap.Logger, svc *Service) http.Handler {
	ctrl := &controller{log, svc}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(svc.clients.Identify)

		r.Get("/articles", ctrl.listArticles)
		r.Get("/magazines", ctrl.listMagazines)
		r.Get("/archive/years", ctrl.listArchiveYears)
		r.Get("/events", ctrl.listEvents)
		r.Get("/categories", ctrl.listCategories)
		r.Post("/contact", ctrl.submitContact)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", ctrl.register)
			r.Post("/login", ctrl.login)
			r.Post("/logout", ctrl.logout)
			r.Get("/session", ctrl.viewSession)
		})

		r.Get("/bookmarks", ctrl.listBookmarks)
		r.Post("/bookmarks/{magazine_id}", ctrl.toggleBookmark)

		r.Route("/viewer", func(r chi.Router) {
			r.Get("/", ctrl.viewSpread)
			r.Post("/open", ctrl.openViewer)
			r.Post("/loaded", ctrl.viewerLoaded)
			r.Post("/next", ctrl.nextSpread)
			r.Post("/previous", ctrl.previousSpread)
			r.Post("/seek", ctrl.seekSpread)
			r.Delete("/", ctrl.closeViewer)
		})

		r.Get("/plans", ctrl.listPlans)
		r.Post("/subscription/checkout", ctrl.checkout)
		r.Post("/subscription/confirm", ctrl.confirmPayment)
	})

	return r
}

type controller struct {
	log *zap.Logger
	svc *Service
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		ctrl.resolve(w, status, ErrorView{Error: err.Error()})
	} else {
		w.WriteHeader(status)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	if b, err := json.Marshal(body); err != nil {
		ctrl.log.Sugar().Errorw("Request failed", "error", err)
		http.Error(w, msgUnexpected, http.StatusInternalServerError)
		return
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(b)
	}
}

// resolveList writes a list body with an ETag, answering 304 when the
// client already holds it.
func (ctrl *controller) resolveList(w http.ResponseWriter, r *http.Request, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	etag := fmt.Sprintf(`"%x"`, xxhash.Sum64(b))
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// fail maps err onto a status and a message fit for the user.
func (ctrl *controller) fail(w http.ResponseWriter, err error) {
	var (
		invalid *session.ValidationError
		fields  contact.FieldErrors
		apiErr  *cms.APIError
	)
	switch {
	case errors.As(err, &invalid):
		ctrl.resolve(w, http.StatusBadRequest, ErrorView{Error: invalid.Message, Field: invalid.Field})
	case errors.As(err, &fields):
		ctrl.resolve(w, http.StatusBadRequest, ErrorView{Error: fields.Error(), Fields: fields})
	case errors.Is(err, session.ErrLoginRequired):
		ctrl.reject(w, http.StatusUnauthorized, err)
	case errors.Is(err, subscription.ErrUnknownPlan),
		errors.Is(err, subscription.ErrIncomplete),
		errors.Is(err, errNotReadable):
		ctrl.reject(w, http.StatusBadRequest, err)
	case errors.Is(err, errNotFound):
		ctrl.reject(w, http.StatusNotFound, err)
	case errors.Is(err, pager.ErrNoDocument):
		ctrl.reject(w, http.StatusConflict, err)
	case errors.Is(err, subscription.ErrReconciliation):
		ctrl.reject(w, http.StatusBadGateway, subscription.ErrReconciliation)
	case errors.As(err, &apiErr):
		ctrl.reject(w, http.StatusBadGateway, apiErr)
	default:
		ctrl.log.Sugar().Errorw("Request failed", "error", err)
		ctrl.reject(w, http.StatusInternalServerError, errors.New(msgUnexpected))
	}
}

func (ctrl *controller) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		ctrl.reject(w, http.StatusBadRequest, errors.New("malformed request body"))
		return false
	}
	return true
}

func (ctrl *controller) listArticles(w http.ResponseWriter, r *http.Request) {
	articles := ctrl.svc.Articles(r.Context(), listing.ParseCriteria(r.URL.Query()))
	ctrl.resolveList(w, r, FromMany[models.Article, ArticleView](articles))
}

func (ctrl *controller) listMagazines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mags := ctrl.svc.Magazines(ctx, listing.ParseCriteria(r.URL.Query()))
	views := FromMany[models.Magazine, MagazineView](mags)

	saved := ctrl.svc.Bookmarked(ctx, clientFrom(ctx))
	for i := range views {
		views[i].Bookmarked = saved[views[i].ID]
	}
	ctrl.resolveList(w, r, views)
}

func (ctrl *controller) listArchiveYears(w http.ResponseWriter, r *http.Request) {
	ctrl.resolveList(w, r, ctrl.svc.ArchiveYears())
}

func (ctrl *controller) listEvents(w http.ResponseWriter, r *http.Request) {
	events := ctrl.svc.Events(r.Context(), listing.ParseCriteria(r.URL.Query()))
	ctrl.resolveList(w, r, FromMany[models.Event, EventView](events))
}

func (ctrl *controller) listCategories(w http.ResponseWriter, r *http.Request) {
	categories := ctrl.svc.Categories(r.Context())
	ctrl.resolveList(w, r, FromMany[models.Category, CategoryView](categories))
}

func (ctrl *controller) submitContact(w http.ResponseWriter, r *http.Request) {
	var form contact.Form
	if !ctrl.decode(w, r, &form) {
		return
	}
	if err := ctrl.svc.SubmitContact(r.Context(), form); err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, map[string]any{
		"message": "Thank you! Your message has been sent successfully.",
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm_password"`
	Contact  string `json:"contact"`
}

func (ctrl *controller) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerRequest
	if !ctrl.decode(w, r, &req) {
		return
	}
	s, err := ctrl.svc.Register(ctx, clientFrom(ctx), session.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Confirm:  req.Confirm,
		Contact:  req.Contact,
	})
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, SessionView{}.From(s))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (ctrl *controller) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if !ctrl.decode(w, r, &req) {
		return
	}
	s, err := ctrl.svc.Login(ctx, clientFrom(ctx), req.Email, req.Password)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, SessionView{}.From(s))
}

func (ctrl *controller) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := ctrl.svc.Logout(ctx, clientFrom(ctx)); err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.reject(w, http.StatusNoContent, nil)
}

func (ctrl *controller) viewSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, _ := clientFrom(ctx).Auth.Current(ctx)
	ctrl.resolve(w, http.StatusOK, SessionView{}.From(s))
}

func (ctrl *controller) listBookmarks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mags, err := ctrl.svc.Collection(ctx, clientFrom(ctx))
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	views := FromMany[models.Magazine, MagazineView](mags)
	for i := range views {
		views[i].Bookmarked = true
	}
	ctrl.resolveList(w, r, views)
}

func (ctrl *controller) toggleBookmark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(chi.URLParam(r, "magazine_id"))
	if !ok {
		ctrl.reject(w, http.StatusBadRequest, errors.New("invalid magazine id"))
		return
	}
	on, err := ctrl.svc.ToggleBookmark(ctx, clientFrom(ctx), id)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"magazine_id": id, "bookmarked": on})
}

func (ctrl *controller) viewSpread(w http.ResponseWriter, r *http.Request) {
	ctrl.resolveSpread(w)(clientFrom(r.Context()).Pager.Spread())
}

type openRequest struct {
	MagazineID uint `json:"magazine_id"`
}

func (ctrl *controller) openViewer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req openRequest
	if !ctrl.decode(w, r, &req) {
		return
	}
	ctrl.resolveSpread(w)(ctrl.svc.OpenMagazine(ctx, clientFrom(ctx), req.MagazineID))
}

type loadedRequest struct {
	Total int `json:"total"`
}

func (ctrl *controller) viewerLoaded(w http.ResponseWriter, r *http.Request) {
	p := clientFrom(r.Context()).Pager
	var req loadedRequest
	if !ctrl.decode(w, r, &req) {
		return
	}
	if err := p.Loaded(req.Total); err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolveSpread(w)(p.Spread())
}

func (ctrl *controller) nextSpread(w http.ResponseWriter, r *http.Request) {
	ctrl.resolveSpread(w)(clientFrom(r.Context()).Pager.Next())
}

func (ctrl *controller) previousSpread(w http.ResponseWriter, r *http.Request) {
	ctrl.resolveSpread(w)(clientFrom(r.Context()).Pager.Previous())
}

type seekRequest struct {
	Index int `json:"index"`
}

func (ctrl *controller) seekSpread(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if !ctrl.decode(w, r, &req) {
		return
	}
	ctrl.resolveSpread(w)(clientFrom(r.Context()).Pager.Seek(req.Index))
}

func (ctrl *controller) closeViewer(w http.ResponseWriter, r *http.Request) {
	clientFrom(r.Context()).Pager.Close()
	ctrl.reject(w, http.StatusNoContent, nil)
}

func (ctrl *controller) resolveSpread(w http.ResponseWriter) func(pager.Spread, error) {
	return func(s pager.Spread, err error) {
		if err != nil {
			ctrl.fail(w, err)
			return
		}
		ctrl.resolve(w, http.StatusOK, s)
	}
}

func (ctrl *controller) listPlans(w http.ResponseWriter, r *http.Request) {
	ctrl.resolveList(w, r, FromMany[subscription.Plan, PlanView](subscription.Plans()))
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

func (ctrl *controller) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req checkoutRequest
	if !ctrl.decode(w, r, &req) {
		return
	}
	charge, err := clientFrom(ctx).Subscription.Checkout(ctx, req.Plan)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, charge)
}

type confirmRequest struct {
	Plan          string `json:"plan"`
	TransactionID string `json:"transaction_id"`
}

func (ctrl *controller) confirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req confirmRequest
	if !ctrl.decode(w, r, &req) {
		return
	}
	sub, err := clientFrom(ctx).Subscription.Complete(ctx, req.Plan, req.TransactionID)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, sub)
}

func parseID(s string) (uint, bool) {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil || u == 0 {
		return 0, false
	}
	return uint(u), true
}
