package memory

import (
	"time"

	"localmind-client/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository caches staging session snapshots so readers (CLI
// panels, services) can inspect the in-flight turn without holding the
// controller lock.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() *SessionRepository {
	// Sessions are short-lived; an hour of retention with periodic
	// purging is plenty for an interactive client.
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(session *store.StagingSession) {
	snapshot := *session
	r.cache.Set(session.ID, &snapshot, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.StagingSession, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.StagingSession), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
