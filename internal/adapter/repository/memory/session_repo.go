// Package memory stores reconciliation sessions in process memory. The
// engine itself is storage-free; sessions are kept only long enough for
// the review workflow, so an expiring in-memory cache is sufficient.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/usecase"
)

const cleanupInterval = 10 * time.Minute

// SessionRepository is a TTL-bounded in-memory SessionRepository. The
// mutex serializes Save against reads, and every stored and returned
// session is a clone, so a review-workflow write on one caller's copy
// never aliases a session another caller is reading.
type SessionRepository struct {
	mu    sync.RWMutex
	cache *gocache.Cache
}

// NewSessionRepository creates a session store whose entries expire after
// ttl. A non-positive ttl keeps sessions until process exit.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}

	return &SessionRepository{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

func (r *SessionRepository) Save(_ context.Context, session *usecase.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Set(session.ID, session.Clone(), gocache.DefaultExpiration)

	return nil
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (*usecase.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.cache.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	return v.(*usecase.Session).Clone(), nil
}

// List returns sessions newest first.
func (r *SessionRepository) List(_ context.Context, limit, offset int) ([]*usecase.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.cache.Items()

	all := make([]*usecase.Session, 0, len(items))
	for _, item := range items {
		all = append(all, item.Object.(*usecase.Session).Clone())
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}

		return all[i].ID > all[j].ID
	})

	if offset >= len(all) {
		return nil, nil
	}

	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	return all[offset:end], nil
}
