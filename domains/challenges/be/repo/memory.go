package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loyaltycore/campaigns-api/domains/challenges/be/service"
	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
)

// MemoryRepository is a simple in-memory implementation suitable for tests
// and early development.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]service.Challenge
	refs map[uuid.UUID]int
	base time.Time
	seq  int64
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[uuid.UUID]service.Challenge),
		refs: make(map[uuid.UUID]int),
		base: time.Now().UTC(),
	}
}

// tick returns strictly increasing timestamps so cursor values never tie.
// Callers must hold the write lock.
func (r *MemoryRepository) tick() time.Time {
	r.seq++
	return r.base.Add(time.Duration(r.seq) * time.Microsecond)
}

func (r *MemoryRepository) Create(ctx context.Context, c service.Challenge) (service.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.tick()
	c.CreatedAt = now
	c.UpdatedAt = now
	r.byID[c.ID] = c
	return c, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (service.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return service.Challenge{}, service.ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepository) Update(ctx context.Context, c service.Challenge) (service.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[c.ID]
	if !ok {
		return service.Challenge{}, service.ErrNotFound
	}

	c.CreatedAt = current.CreatedAt
	c.UpdatedAt = r.tick()
	r.byID[c.ID] = c
	return c, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return service.ErrNotFound
	}
	if r.refs[id] > 0 {
		return service.ErrHasAssociations
	}

	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, opts pagination.Options) (pagination.Page[service.Challenge], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.Challenge, 0, len(r.byID))
	for _, c := range r.byID {
		items = append(items, c)
	}

	return pagination.Slice(items, opts, challengeCursor(opts.Field)), nil
}

// AddReference and RemoveReference let callers mirror campaign attachments so
// the deletion guard behaves like the SQL store's reference count.
func (r *MemoryRepository) AddReference(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[id]++
}

func (r *MemoryRepository) RemoveReference(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs[id] > 0 {
		r.refs[id]--
	}
}

func challengeCursor(field pagination.Field) func(service.Challenge) time.Time {
	if field == pagination.FieldUpdatedAt {
		return func(c service.Challenge) time.Time { return c.UpdatedAt }
	}
	return func(c service.Challenge) time.Time { return c.CreatedAt }
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
