package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const accommodationKeyPrefix = "accommodation:"

// CachedAccommodationRepository decorates an AccommodationRepository with a
// Redis read-through cache. The catalog changes rarely and is read on every
// booking, so stale entries are tolerable for the configured TTL; writes go
// to the inner repository first and then refresh the cache.
//
// Booking read models are never cached: the availability check must see
// occupancy as fresh as the read model can provide.
type CachedAccommodationRepository struct {
	inner  AccommodationRepository
	client *redis.Client
	ttl    time.Duration
}

var _ AccommodationRepository = (*CachedAccommodationRepository)(nil)

// NewCachedAccommodationRepository wraps inner with a Redis cache. A ttl of
// zero disables expiry.
func NewCachedAccommodationRepository(inner AccommodationRepository, client *redis.Client, ttl time.Duration) *CachedAccommodationRepository {
	return &CachedAccommodationRepository{inner: inner, client: client, ttl: ttl}
}

func (r *CachedAccommodationRepository) Get(ctx context.Context, id uuid.UUID) (*AccommodationReadModel, error) {
	key := accommodationKeyPrefix + id.String()

	data, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var model AccommodationReadModel
		if err := json.Unmarshal(data, &model); err == nil {
			return &model, nil
		}
		// Unreadable cache entry, fall through to the source of truth.
		r.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("cache get accommodation %s: %w", id, err)
	}

	model, err := r.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache(ctx, model)
	return model, nil
}

// List always hits the inner repository; listings need the full current
// catalog and are not on the booking hot path.
func (r *CachedAccommodationRepository) List(ctx context.Context) ([]*AccommodationReadModel, error) {
	return r.inner.List(ctx)
}

func (r *CachedAccommodationRepository) Save(ctx context.Context, model *AccommodationReadModel) error {
	if err := r.inner.Save(ctx, model); err != nil {
		return err
	}
	r.cache(ctx, model)
	return nil
}

func (r *CachedAccommodationRepository) cache(ctx context.Context, model *AccommodationReadModel) {
	data, err := json.Marshal(model)
	if err != nil {
		return
	}
	r.client.Set(ctx, accommodationKeyPrefix+model.ID.String(), data, r.ttl)
}
