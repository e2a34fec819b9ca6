// Package bookmarks keeps the set of magazines a signed-in user has saved.
package bookmarks

import (
	"context"
	"slices"
	"sync"

	"github.com/fiffu/manzil/lib/models"
	"github.com/fiffu/manzil/lib/session"
	"go.uber.org/zap"
)

// Backend is the CMS's bookmark surface.
type Backend interface {
	FetchBookmarks(ctx context.Context, token string, userID uint) []models.Bookmark
	FindBookmark(ctx context.Context, token string, userID, magazineID uint) (*models.Bookmark, error)
	CreateBookmark(ctx context.Context, token string, userID, magazineID uint) (*models.Bookmark, error)
	DeleteBookmark(ctx context.Context, token string, bookmarkID uint) error
}

type Manager struct {
	backend Backend
	session *session.Context
	log     *zap.Logger
	cancel  func()

	// toggling serialises toggles; mu guards the fields below it.
	toggling sync.Mutex
	mu       sync.Mutex
	ids      map[uint]struct{}
	hydrated bool
	gen      int
}

func NewManager(backend Backend, sess *session.Context, log *zap.Logger) *Manager {
	m := &Manager{
		backend: backend,
		session: sess,
		log:     log,
		ids:     make(map[uint]struct{}),
	}
	m.cancel = sess.Subscribe(func(*models.Session) { m.reset() })
	return m
}

// Close detaches the manager from the session.
func (m *Manager) Close() {
	m.cancel()
}

func (m *Manager) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = make(map[uint]struct{})
	m.hydrated = false
	m.gen++
}

func (m *Manager) hydrate(ctx context.Context, s *models.Session) {
	m.mu.Lock()
	if m.hydrated {
		m.mu.Unlock()
		return
	}
	gen := m.gen
	m.mu.Unlock()

	found := m.backend.FetchBookmarks(ctx, s.Token, s.User.ID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.hydrated {
		return
	}
	for _, b := range found {
		m.ids[b.MagazineID] = struct{}{}
	}
	m.hydrated = true
}

// Bookmarked returns the saved magazine IDs in ascending order.
func (m *Manager) Bookmarked(ctx context.Context) ([]uint, error) {
	s, err := m.session.Require(ctx)
	if err != nil {
		return nil, err
	}
	m.hydrate(ctx, s)

	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint, 0, len(m.ids))
	for id := range m.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *Manager) IsBookmarked(magazineID uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[magazineID]
	return ok
}

// Toggle flips the bookmark on magazineID and reports whether it is now
// bookmarked. The local set changes before the CMS is called and is
// reverted if the call fails.
func (m *Manager) Toggle(ctx context.Context, magazineID uint) (bool, error) {
	s, err := m.session.Require(ctx)
	if err != nil {
		return false, err
	}

	m.toggling.Lock()
	defer m.toggling.Unlock()

	m.hydrate(ctx, s)

	m.mu.Lock()
	_, had := m.ids[magazineID]
	m.flip(magazineID, had)
	gen := m.gen
	m.mu.Unlock()

	if had {
		err = m.remove(ctx, s, magazineID)
	} else {
		err = m.add(ctx, s, magazineID)
	}
	if err != nil {
		m.log.Sugar().Errorw("Bookmark toggle failed",
			"user_id", s.User.ID, "magazine_id", magazineID, "err", err)
		m.mu.Lock()
		if gen == m.gen {
			m.flip(magazineID, !had)
		}
		m.mu.Unlock()
		return had, err
	}
	return !had, nil
}

func (m *Manager) flip(magazineID uint, present bool) {
	if present {
		delete(m.ids, magazineID)
	} else {
		m.ids[magazineID] = struct{}{}
	}
}

func (m *Manager) add(ctx context.Context, s *models.Session, magazineID uint) error {
	existing, err := m.backend.FindBookmark(ctx, s.Token, s.User.ID, magazineID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = m.backend.CreateBookmark(ctx, s.Token, s.User.ID, magazineID)
	return err
}

func (m *Manager) remove(ctx context.Context, s *models.Session, magazineID uint) error {
	existing, err := m.backend.FindBookmark(ctx, s.Token, s.User.ID, magazineID)
	if err != nil || existing == nil {
		return err
	}
	return m.backend.DeleteBookmark(ctx, s.Token, existing.ID)
}
