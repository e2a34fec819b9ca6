package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/manzil/lib/models"
	"github.com/fiffu/manzil/lib/richtext"
)

// fetch reads one CMS collection. Failures are logged and reported as
// ok=false; callers degrade to an empty collection.
func fetch[T any](ctx context.Context, c *Client, what string, rb *requests.Builder) (entries []entry[T], ok bool) {
	var env envelope[T]
	if err := rb.ToJSON(&env).Fetch(ctx); err != nil {
		c.log.Sugar().Errorw("Failed to fetch "+what, "err", err)
		return nil, false
	}
	return env.Data, true
}

func (c *Client) FetchArticles(ctx context.Context) []models.Article {
	rb := c.request("/articles").
		Param("populate", "*").
		Param("pagination[pageSize]", pageSize)

	entries, _ := fetch[articleAttrs](ctx, c, "articles", rb)
	out := make([]models.Article, 0, len(entries))
	for _, e := range entries {
		out = append(out, c.article(e))
	}
	return out
}

func (c *Client) article(e entry[articleAttrs]) models.Article {
	a := e.Attributes
	return models.Article{
		ID:          e.ID,
		Title:       orDefault(a.Title, "No Title"),
		Description: orDefault(a.Description, "No description available"),
		Content:     richtext.Decode(a.Content, c.ResolveAsset),
		CreatedAt:   firstNonEmpty(a.PublishedDate, a.PublishedAt, a.CreatedAt),
		ImageURL:    c.resolveImage(a.Image.FirstURL()),
	}
}

func (c *Client) FetchMagazines(ctx context.Context) []models.Magazine {
	rb := c.request("/magazines").
		Param("populate", "*").
		Param("pagination[pageSize]", pageSize)

	entries, _ := fetch[magazineAttrs](ctx, c, "magazines", rb)
	out := make([]models.Magazine, 0, len(entries))
	for _, e := range entries {
		out = append(out, c.magazine(e))
	}
	return out
}

func (c *Client) magazine(e entry[magazineAttrs]) models.Magazine {
	a := e.Attributes
	category := models.Uncategorized
	if rel := a.Category.Data; rel != nil {
		category = orDefault(rel.Attributes.Name, models.Uncategorized)
	}
	return models.Magazine{
		ID:          e.ID,
		Title:       orDefault(a.Title, "No Title"),
		CoverURL:    c.ResolveAsset(a.CoverImage.FirstURL()),
		PDFURL:      c.ResolveAsset(a.Ebook.FirstURL()),
		Category:    category,
		PublishedAt: a.PublishedAt,
	}
}

func (c *Client) FetchEvents(ctx context.Context) []models.Event {
	rb := c.request("/events").
		Param("populate", "*").
		Param("pagination[pageSize]", pageSize)

	entries, _ := fetch[eventAttrs](ctx, c, "events", rb)
	out := make([]models.Event, 0, len(entries))
	for _, e := range entries {
		out = append(out, c.event(e))
	}
	return out
}

func (c *Client) event(e entry[eventAttrs]) models.Event {
	a := e.Attributes
	link := strings.TrimSpace(a.Link)
	return models.Event{
		ID:          e.ID,
		Title:       orDefault(a.Title, "No Title"),
		Date:        a.Date,
		Description: c.description(a.Description),
		ImageURL:    c.resolveImage(a.Image.FirstURL()),
		Link:        link,
		LinkValid:   ValidLink(link),
	}
}

// description accepts either a blocks field or a plain text field.
func (c *Client) description(raw json.RawMessage) []models.Block {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return []models.Block{models.Paragraph{Inlines: []models.Inline{{Text: s}}}}
		}
		return []models.Block{}
	}
	return richtext.Decode(raw, c.ResolveAsset)
}

func (c *Client) FetchCategories(ctx context.Context) []models.Category {
	rb := c.request("/categories").
		Param("pagination[pageSize]", pageSize)

	entries, _ := fetch[categoryAttrs](ctx, c, "categories", rb)
	out := make([]models.Category, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.Category{
			ID:   e.ID,
			Name: orDefault(e.Attributes.Name, models.Uncategorized),
		})
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
