package session

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/zhouzirui/insight-dice/backend/internal/model/session"
)

// Store keeps one in-flight session per user. Entries expire after ttl of inactivity.
type Store struct {
	cache *cache.Cache
}

// NewStore creates a Store; a zero cleanupInterval disables the background janitor.
func NewStore(ttl, cleanupInterval time.Duration) *Store {
	return &Store{cache: cache.New(ttl, cleanupInterval)}
}

// Get returns a copy of the user's session.
func (s *Store) Get(userID string) (session.Session, bool) {
	x, found := s.cache.Get(userID)
	if !found {
		return session.Session{}, false
	}
	return x.(session.Session).Clone(), true
}

// Save replaces the user's session and refreshes its expiry.
func (s *Store) Save(sess session.Session) {
	s.cache.Set(sess.UserID, sess.Clone(), cache.DefaultExpiration)
}

// Delete drops the user's session. Deleting a missing session is a no-op.
func (s *Store) Delete(userID string) {
	s.cache.Delete(userID)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
