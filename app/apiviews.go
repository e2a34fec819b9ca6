package app

import (
	"github.com/fiffu/manzil/lib/listing"
	"github.com/fiffu/manzil/lib/models"
	"github.com/fiffu/manzil/lib/richtext"
	"github.com/fiffu/manzil/lib/subscription"
)

const (
	excerptLength    = 160
	dateLabelLayout  = "January 2, 2006"
	dateNotAvailable = "Date not available"
)

type ArticleView struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"description_html"`
	ContentHTML     string `json:"content_html"`
	Excerpt         string `json:"excerpt"`
	CreatedAt       string `json:"created_at"`
	Year            string `json:"year"`
	ImageURL        string `json:"image_url"`
}

func (view ArticleView) From(entity models.Article) ArticleView {
	content := richtext.HTML(entity.Content)
	return ArticleView{
		ID:              entity.ID,
		Title:           entity.Title,
		Description:     entity.Description,
		DescriptionHTML: richtext.Markdown(entity.Description),
		ContentHTML:     content,
		Excerpt:         richtext.Excerpt(richtext.PlainText(content), excerptLength),
		CreatedAt:       entity.CreatedAt,
		Year:            listing.Year(entity.CreatedAt),
		ImageURL:        entity.ImageURL,
	}
}

type MagazineView struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	CoverURL    string `json:"cover_url"`
	PDFURL      string `json:"pdf_url"`
	Category    string `json:"category"`
	PublishedAt string `json:"published_at"`
	Year        string `json:"year"`
	Readable    bool   `json:"readable"`
	Bookmarked  bool   `json:"bookmarked"`
}

func (view MagazineView) From(entity models.Magazine) MagazineView {
	return MagazineView{
		ID:          entity.ID,
		Title:       entity.Title,
		CoverURL:    entity.CoverURL,
		PDFURL:      entity.PDFURL,
		Category:    entity.Category,
		PublishedAt: entity.PublishedAt,
		Year:        listing.Year(entity.PublishedAt),
		Readable:    entity.Readable(),
	}
}

type EventView struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	Date            string `json:"date"`
	DateLabel       string `json:"date_label"`
	DescriptionHTML string `json:"description_html"`
	Description     string `json:"description"`
	ImageURL        string `json:"image_url"`
	Link            string `json:"link,omitempty"`
	LinkValid       bool   `json:"link_valid"`
}

func (view EventView) From(entity models.Event) EventView {
	label := dateNotAvailable
	if t, ok := listing.ParseDate(entity.Date); ok {
		label = t.Format(dateLabelLayout)
	}
	return EventView{
		ID:              entity.ID,
		Title:           entity.Title,
		Date:            entity.Date,
		DateLabel:       label,
		DescriptionHTML: richtext.HTML(entity.Description),
		Description:     richtext.Text(entity.Description),
		ImageURL:        entity.ImageURL,
		Link:            entity.Link,
		LinkValid:       entity.LinkValid,
	}
}

type CategoryView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func (view CategoryView) From(entity models.Category) CategoryView {
	return CategoryView{ID: entity.ID, Name: entity.Name}
}

type PlanView struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Price int64  `json:"price"`
	Label string `json:"label"`
	Trial string `json:"trial"`
	Badge string `json:"badge,omitempty"`
}

func (view PlanView) From(entity subscription.Plan) PlanView {
	return PlanView{
		Name:  entity.Name,
		Title: entity.Title,
		Price: entity.Price,
		Label: entity.Label,
		Trial: entity.Trial,
		Badge: entity.Badge,
	}
}

type UserView struct {
	ID           uint                 `json:"id"`
	Username     string               `json:"username"`
	Email        string               `json:"email"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

// SessionView is the dashboard: the profile when signed in, and the plan
// catalogue until the user subscribes.
type SessionView struct {
	Active     bool       `json:"active"`
	Subscribed bool       `json:"subscribed"`
	User       *UserView  `json:"user,omitempty"`
	Plans      []PlanView `json:"plans,omitempty"`
}

func (view SessionView) From(entity *models.Session) SessionView {
	if entity == nil {
		return SessionView{}
	}
	out := SessionView{
		Active:     true,
		Subscribed: entity.Subscribed(),
		User: &UserView{
			ID:           entity.User.ID,
			Username:     entity.User.Username,
			Email:        entity.User.Email,
			Subscription: entity.User.Subscription,
		},
	}
	if !out.Subscribed {
		out.Plans = FromMany[subscription.Plan, PlanView](subscription.Plans())
	}
	return out
}

type ErrorView struct {
	Error  string            `json:"error"`
	Field  string            `json:"field,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

type Fromable[Entity any, Repr any] interface {
	From(Entity) Repr
}

func FromMany[T any, U Fromable[T, U]](elems []T) []U {
	out := make([]U, len(elems))
	for i, t := range elems {
		var u U
		out[i] = u.From(t)
	}
	return out
}
