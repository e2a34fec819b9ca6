// Package storage is the per-client key-value store that holds a browser's
// session keys.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is one client's key-value storage.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Entry is one key of one client's storage.
type Entry struct {
	ClientID  string `gorm:"primaryKey"`
	Name      string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

// ClientStorage hands out the sqlite-backed store of each client.
type ClientStorage struct {
	db *gorm.DB
}

func NewClientStorage(db *gorm.DB) *ClientStorage {
	return &ClientStorage{db}
}

func (s *ClientStorage) For(clientID string) Store {
	return &clientStore{db: s.db, clientID: clientID}
}

type clientStore struct {
	db       *gorm.DB
	clientID string
}

func (s *clientStore) Get(ctx context.Context, key string) (string, bool, error) {
	var e Entry
	tx := s.db.WithContext(ctx).
		Where(&Entry{ClientID: s.clientID, Name: key}).
		First(&e)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (s *clientStore) Set(ctx context.Context, key, value string) error {
	e := &Entry{ClientID: s.clientID, Name: key, Value: value, UpdatedAt: time.Now().UTC()}
	tx := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(e)
	return tx.Error
}

func (s *clientStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx := s.db.WithContext(ctx).
		Where("client_id = ? AND name IN ?", s.clientID, keys).
		Delete(&Entry{})
	return tx.Error
}

// Memory is a Store kept in process memory.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}
