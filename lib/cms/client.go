package cms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/manzil/config"
	"github.com/fiffu/manzil/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const pageSize = "100"

// Client talks to the CMS REST API and shapes its payloads into flat records.
type Client struct {
	log       *zap.Logger
	transport http.RoundTripper
	apiURL    string
	mediaURL  string
}

func NewClient(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, transport http.RoundTripper) *Client {
	return New(cfg.APIURL, cfg.MediaURL, log, transport)
}

func New(apiURL, mediaURL string, log *zap.Logger, transport http.RoundTripper) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		log:       log,
		transport: transport,
		apiURL:    strings.TrimRight(apiURL, "/"),
		mediaURL:  strings.TrimRight(mediaURL, "/"),
	}
}

func (c *Client) request(path string) *requests.Builder {
	return requests.URL(c.apiURL + path).Transport(c.transport)
}

func (c *Client) authorized(path, token string) *requests.Builder {
	rb := c.request(path)
	if token != "" {
		rb = rb.Bearer(token)
	}
	return rb
}

// send performs a write and turns a failure into an *APIError carrying the
// backend's message, or fallback when the backend gave none.
func (c *Client) send(ctx context.Context, rb *requests.Builder, fallback string) error {
	var body errorBody
	err := rb.AddValidator(requests.ErrorJSON(&body)).Fetch(ctx)
	if err == nil {
		return nil
	}
	if msg := body.Error.Message; msg != "" {
		return &APIError{Status: body.Error.Status, Message: msg, Rejected: true, Err: err}
	}
	return &APIError{Message: fallback, Err: err}
}

// ResolveAsset turns a CMS media path into an absolute URL. An empty path
// resolves to models.Unavailable.
func (c *Client) ResolveAsset(path string) string {
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return models.Unavailable
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	case strings.HasPrefix(path, "//"):
		return "https:" + path
	}
	return c.mediaURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) resolveImage(path string) string {
	if u := c.ResolveAsset(path); models.Available(u) {
		return u
	}
	return models.PlaceholderImage
}

// ValidLink reports whether link is an absolute http(s) URL safe to render
// as an actionable link.
func ValidLink(link string) bool {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func idParam(id uint) string {
	return fmt.Sprintf("%d", id)
}
