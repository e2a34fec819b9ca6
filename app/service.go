package app

import (
	"context"
	"errors"
	"time"

	"github.com/fiffu/manzil/config"
	"github.com/fiffu/manzil/lib/cms"
	"github.com/fiffu/manzil/lib/contact"
	"github.com/fiffu/manzil/lib/listing"
	"github.com/fiffu/manzil/lib/models"
	"github.com/fiffu/manzil/lib/pager"
	"github.com/fiffu/manzil/lib/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// archiveYears is how many years the archive selector offers.
const archiveYears = 5

var (
	errNotFound    = errors.New("magazine not found")
	errNotReadable = errors.New("this magazine has no readable document")
)

type Service struct {
	cfg     *config.Config
	log     *zap.Logger
	cms     *cms.Client
	contact *contact.Service
	clients *Clients
	now     func() time.Time
}

func NewService(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, cmsClient *cms.Client, contactSvc *contact.Service, clients *Clients) *Service {
	return &Service{cfg, log, cmsClient, contactSvc, clients, time.Now}
}

func (svc *Service) Articles(ctx context.Context, c listing.Criteria) []models.Article {
	return listing.Filter(svc.cms.FetchArticles(ctx), c)
}

// Magazines lists the current issues newest first.
func (svc *Service) Magazines(ctx context.Context, c listing.Criteria) []models.Magazine {
	return listing.Filter(listing.SortByPublishedDesc(svc.cms.FetchMagazines(ctx)), c)
}

func (svc *Service) Events(ctx context.Context, c listing.Criteria) []models.Event {
	return listing.Filter(svc.cms.FetchEvents(ctx), c)
}

func (svc *Service) Categories(ctx context.Context) []models.Category {
	return svc.cms.FetchCategories(ctx)
}

func (svc *Service) ArchiveYears() []string {
	return listing.RecentYears(svc.now(), archiveYears)
}

// Bookmarked returns the saved magazine IDs of client, or nil when it is
// not signed in.
func (svc *Service) Bookmarked(ctx context.Context, client *Client) map[uint]bool {
	ids, err := client.Bookmarks.Bookmarked(ctx)
	if err != nil {
		return nil
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Collection lists the client's bookmarked magazines, newest first.
func (svc *Service) Collection(ctx context.Context, client *Client) ([]models.Magazine, error) {
	ids, err := client.Bookmarks.Bookmarked(ctx)
	if err != nil {
		return nil, err
	}
	saved := make(map[uint]bool, len(ids))
	for _, id := range ids {
		saved[id] = true
	}

	out := []models.Magazine{}
	for _, m := range svc.Magazines(ctx, listing.Criteria{}) {
		if saved[m.ID] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (svc *Service) ToggleBookmark(ctx context.Context, client *Client, magazineID uint) (bool, error) {
	return client.Bookmarks.Toggle(ctx, magazineID)
}

// OpenMagazine points the client's viewer at the magazine's document.
func (svc *Service) OpenMagazine(ctx context.Context, client *Client, magazineID uint) (pager.Spread, error) {
	for _, m := range svc.cms.FetchMagazines(ctx) {
		if m.ID != magazineID {
			continue
		}
		if !m.Readable() {
			return pager.Spread{}, errNotReadable
		}
		client.Pager.Open(m.PDFURL)
		return client.Pager.Spread()
	}
	return pager.Spread{}, errNotFound
}

func (svc *Service) SubmitContact(ctx context.Context, form contact.Form) error {
	return svc.contact.Submit(ctx, form)
}

func (svc *Service) Register(ctx context.Context, client *Client, r session.Registration) (*models.Session, error) {
	return client.Auth.Register(ctx, r)
}

func (svc *Service) Login(ctx context.Context, client *Client, email, password string) (*models.Session, error) {
	return client.Auth.Login(ctx, email, password)
}

func (svc *Service) Logout(ctx context.Context, client *Client) error {
	client.Pager.Close()
	return client.Auth.Logout(ctx)
}
