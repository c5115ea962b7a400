package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mobilerecharge/server/internal/model"
)

// memorySessionRepo keeps sessions in process memory. Sessions do not survive a
// restart and are not shared between instances.
type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.AdminSession
	now      func() time.Time
}

// NewMemorySessionRepo creates an in-process SessionRepo for single-instance deployments
func NewMemorySessionRepo() SessionRepo {
	return &memorySessionRepo{
		sessions: make(map[uuid.UUID]model.AdminSession),
		now:      time.Now,
	}
}

func (r *memorySessionRepo) Create(ctx context.Context, token model.ProviderToken, expiresAt time.Time) (model.AdminSession, error) {
	s := model.AdminSession{
		ID:          uuid.New(),
		AccessToken: token.AccessToken,
		InstanceURL: token.InstanceURL,
		CreatedAt:   r.now(),
		ExpiresAt:   expiresAt,
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

func (r *memorySessionRepo) FindActive(ctx context.Context, id uuid.UUID) (model.AdminSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.ExpiresAt.After(r.now()) {
		return model.AdminSession{}, ErrSessionNotFound
	}
	return s, nil
}

func (r *memorySessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

func (r *memorySessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var n int64
	for id, s := range r.sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}
