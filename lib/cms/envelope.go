package cms

import (
	"bytes"
	"encoding/json"
)

// envelope is the CMS list response: {data: [{id, attributes}], meta}.
type envelope[T any] struct {
	Data []entry[T]      `json:"data"`
	Meta json.RawMessage `json:"meta"`
}

// single is the CMS response for one record: {data: {id, attributes}}.
type single[T any] struct {
	Data *entry[T] `json:"data"`
}

type entry[T any] struct {
	ID         uint `json:"id"`
	Attributes T    `json:"attributes"`
}

// relation is a populated to-one relation.
type relation[T any] struct {
	Data *entry[T] `json:"data"`
}

type mediaAttrs struct {
	URL             string `json:"url"`
	AlternativeText string `json:"alternativeText"`
}

// media is a populated media field. The CMS sends a single object for
// single-media fields and an array for multi-media fields.
type media struct {
	items []entry[mediaAttrs]
}

func (m *media) UnmarshalJSON(b []byte) error {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return err
	}
	data := bytes.TrimSpace(wrapper.Data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		m.items = nil
	case data[0] == '[':
		return json.Unmarshal(data, &m.items)
	default:
		var one entry[mediaAttrs]
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		m.items = []entry[mediaAttrs]{one}
	}
	return nil
}

// FirstURL is the path of the first media item, or "".
func (m media) FirstURL() string {
	if len(m.items) == 0 {
		return ""
	}
	return m.items[0].Attributes.URL
}

type articleAttrs struct {
	Title         string          `json:"Title"`
	Description   string          `json:"Description"`
	Content       json.RawMessage `json:"Content"`
	PublishedDate string          `json:"PublishedDate"`
	PublishedAt   string          `json:"publishedAt"`
	CreatedAt     string          `json:"createdAt"`
	Image         media           `json:"Image"`
}

type magazineAttrs struct {
	Title       string                  `json:"Title"`
	CoverImage  media                   `json:"CoverImage"`
	Ebook       media                   `json:"Ebook"`
	Category    relation[categoryAttrs] `json:"category"`
	PublishedAt string                  `json:"publishedAt"`
}

type categoryAttrs struct {
	Name string `json:"name"`
}

type eventAttrs struct {
	Title       string          `json:"Title"`
	Date        string          `json:"Date"`
	Description json.RawMessage `json:"Description"`
	Image       media           `json:"Image"`
	Link        string          `json:"Link"`
}

type bookmarkAttrs struct {
	User     relation[json.RawMessage] `json:"user"`
	Magazine relation[json.RawMessage] `json:"magazine"`
}

// authResponse is returned by the register and login endpoints.
type authResponse struct {
	JWT  string   `json:"jwt"`
	User userWire `json:"user"`
}

type userWire struct {
	ID                 uint   `json:"id"`
	Username           string `json:"username"`
	Email              string `json:"email"`
	SubscriptionStatus string `json:"subscriptionStatus"`
	Plan               string `json:"plan"`
	RenewalDate        string `json:"renewalDate"`
}
