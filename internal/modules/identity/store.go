package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Session is an opaque bearer credential minted by the external auth
// collaborator. The engine only resolves tokens back to user IDs.
type Session struct {
	Token    string
	UserID   uuid.UUID
	IssuedAt time.Time
}

type Store struct {
	cache *cache.Cache
}

func NewStore(ttl time.Duration) *Store {
	return &Store{cache: cache.New(ttl, 10*time.Minute)}
}

// Issue registers a session for a user and returns it. In production the
// auth collaborator calls this on login; tests call it directly.
func (s *Store) Issue(userID uuid.UUID) Session {
	session := Session{
		Token:    uuid.NewString(),
		UserID:   userID,
		IssuedAt: time.Now().UTC(),
	}

	s.cache.Set(session.Token, session, cache.DefaultExpiration)
	return session
}

func (s *Store) Resolve(token string) (Session, bool) {
	raw, found := s.cache.Get(token)
	if !found {
		return Session{}, false
	}

	session, ok := raw.(Session)
	return session, ok
}

func (s *Store) Revoke(token string) {
	s.cache.Delete(token)
}
