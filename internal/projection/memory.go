package projection

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBookingRepository is an in-memory BookingRepository, suitable for
// tests and single-node deployments.
type MemoryBookingRepository struct {
	mu     sync.RWMutex
	models map[uuid.UUID]*BookingReadModel
}

var _ BookingRepository = (*MemoryBookingRepository)(nil)

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{models: make(map[uuid.UUID]*BookingReadModel)}
}

func (r *MemoryBookingRepository) Get(ctx context.Context, id uuid.UUID) (*BookingReadModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	model, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	cp := *model
	return &cp, nil
}

func (r *MemoryBookingRepository) List(ctx context.Context) ([]*BookingReadModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(*BookingReadModel) bool { return true }), nil
}

func (r *MemoryBookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*BookingReadModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(m *BookingReadModel) bool { return m.UserID == userID }), nil
}

func (r *MemoryBookingRepository) ListOverlapping(ctx context.Context, start, end time.Time) ([]*BookingReadModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(m *BookingReadModel) bool { return m.Overlaps(start, end) }), nil
}

func (r *MemoryBookingRepository) Save(ctx context.Context, model *BookingReadModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *model
	r.models[model.ID] = &cp
	return nil
}

// collect returns copies matching the predicate, ordered by start date for
// deterministic listings. Callers must hold the lock.
func (r *MemoryBookingRepository) collect(match func(*BookingReadModel) bool) []*BookingReadModel {
	out := make([]*BookingReadModel, 0)
	for _, model := range r.models {
		if match(model) {
			cp := *model
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// MemoryAccommodationRepository is an in-memory AccommodationRepository.
type MemoryAccommodationRepository struct {
	mu     sync.RWMutex
	models map[uuid.UUID]*AccommodationReadModel
}

var _ AccommodationRepository = (*MemoryAccommodationRepository)(nil)

func NewMemoryAccommodationRepository() *MemoryAccommodationRepository {
	return &MemoryAccommodationRepository{models: make(map[uuid.UUID]*AccommodationReadModel)}
}

func (r *MemoryAccommodationRepository) Get(ctx context.Context, id uuid.UUID) (*AccommodationReadModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	model, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("accommodation %s: %w", id, ErrNotFound)
	}
	cp := *model
	return &cp, nil
}

func (r *MemoryAccommodationRepository) List(ctx context.Context) ([]*AccommodationReadModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*AccommodationReadModel, 0, len(r.models))
	for _, model := range r.models {
		cp := *model
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryAccommodationRepository) Save(ctx context.Context, model *AccommodationReadModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *model
	r.models[model.ID] = &cp
	return nil
}
