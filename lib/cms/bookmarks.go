package cms

import (
	"context"
	"net/http"

	"github.com/fiffu/manzil/lib/models"
)

func (c *Client) FetchBookmarks(ctx context.Context, token string, userID uint) []models.Bookmark {
	rb := c.authorized("/bookmarks", token).
		Param("populate", "magazine").
		Param("filters[user][id][$eq]", idParam(userID)).
		Param("pagination[pageSize]", pageSize)

	entries, _ := fetch[bookmarkAttrs](ctx, c, "bookmarks", rb)
	out := make([]models.Bookmark, 0, len(entries))
	for _, e := range entries {
		if b, ok := bookmark(e, userID); ok {
			out = append(out, b)
		}
	}
	return out
}

// FindBookmark looks up the bookmark of the (user, magazine) pair. It
// returns nil without error when the pair is not bookmarked.
func (c *Client) FindBookmark(ctx context.Context, token string, userID, magazineID uint) (*models.Bookmark, error) {
	var env envelope[bookmarkAttrs]
	rb := c.authorized("/bookmarks", token).
		Param("populate", "magazine").
		Param("filters[user][id][$eq]", idParam(userID)).
		Param("filters[magazine][id][$eq]", idParam(magazineID)).
		ToJSON(&env)
	if err := c.send(ctx, rb, "Could not look up bookmark."); err != nil {
		return nil, err
	}
	for _, e := range env.Data {
		b, ok := bookmark(e, userID)
		if !ok {
			b = models.Bookmark{ID: e.ID, UserID: userID, MagazineID: magazineID}
		}
		if b.MagazineID == magazineID {
			return &b, nil
		}
	}
	return nil, nil
}

func (c *Client) CreateBookmark(ctx context.Context, token string, userID, magazineID uint) (*models.Bookmark, error) {
	var created single[bookmarkAttrs]
	rb := c.authorized("/bookmarks", token).
		Post().
		BodyJSON(map[string]any{
			"data": map[string]any{"user": userID, "magazine": magazineID},
		}).
		ToJSON(&created)
	if err := c.send(ctx, rb, "Could not save bookmark."); err != nil {
		return nil, err
	}

	b := models.Bookmark{UserID: userID, MagazineID: magazineID}
	if created.Data != nil {
		b.ID = created.Data.ID
	}
	return &b, nil
}

func (c *Client) DeleteBookmark(ctx context.Context, token string, bookmarkID uint) error {
	rb := c.authorized("/bookmarks/"+idParam(bookmarkID), token).
		Method(http.MethodDelete)
	return c.send(ctx, rb, "Could not remove bookmark.")
}

func bookmark(e entry[bookmarkAttrs], userID uint) (models.Bookmark, bool) {
	mag := e.Attributes.Magazine.Data
	if mag == nil {
		return models.Bookmark{}, false
	}
	if user := e.Attributes.User.Data; user != nil {
		userID = user.ID
	}
	return models.Bookmark{ID: e.ID, UserID: userID, MagazineID: mag.ID}, true
}
