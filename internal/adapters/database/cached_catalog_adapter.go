package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/providers"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
)

// Cache TTLs (in seconds)
const (
	catalogByIDTTL = 300
	catalogListTTL = 300
)

func hotelCacheKey(id string) string {
	return fmt.Sprintf("hotel:%s", id)
}

func hotelsListCacheKey(limit, offset int) string {
	return fmt.Sprintf("hotels:list:%d:%d", limit, offset)
}

func doctorCacheKey(id string) string {
	return fmt.Sprintf("doctor:%s", id)
}

func doctorsListCacheKey(limit, offset int) string {
	return fmt.Sprintf("doctors:list:%d:%d", limit, offset)
}

// readThrough serves key from cache or loads and stores it
func readThrough[T any](ctx context.Context, cache providers.CacheProvider, key string, ttl int, load func() (T, error)) (T, error) {
	if cached, err := cache.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(cached, &v); err == nil {
			return v, nil
		}
		log.Ctx(ctx).Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if data, err := json.Marshal(v); err == nil {
		if err := cache.Set(ctx, key, data, ttl); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to populate cache")
		}
	}
	return v, nil
}

func invalidate(ctx context.Context, cache providers.CacheProvider, keys []string, patterns ...string) {
	if len(keys) > 0 {
		if err := cache.Delete(ctx, keys...); err != nil {
			log.Ctx(ctx).Warn().Err(err).Strs("keys", keys).Msg("failed to invalidate cache")
		}
	}
	for _, pattern := range patterns {
		if err := cache.DeletePattern(ctx, pattern); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("pattern", pattern).Msg("failed to invalidate cache")
		}
	}
}

// CachedHotelAdapter wraps a HotelRepository with caching
type CachedHotelAdapter struct {
	adapter repositories.HotelRepository
	cache   providers.CacheProvider
}

// NewCachedHotelAdapter creates a new cached hotel adapter
func NewCachedHotelAdapter(adapter repositories.HotelRepository, cache providers.CacheProvider) repositories.HotelRepository {
	return &CachedHotelAdapter{adapter: adapter, cache: cache}
}

// GetByID retrieves a hotel by ID with caching
func (a *CachedHotelAdapter) GetByID(ctx context.Context, id string) (*entities.HotelAlliance, error) {
	return readThrough(ctx, a.cache, hotelCacheKey(id), catalogByIDTTL, func() (*entities.HotelAlliance, error) {
		return a.adapter.GetByID(ctx, id)
	})
}

// GetByIDs serves cached hotels and loads the rest in one query
func (a *CachedHotelAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.HotelAlliance, error) {
	hotels := make([]*entities.HotelAlliance, 0, len(ids))
	var missing []string

	for _, id := range ids {
		if cached, err := a.cache.Get(ctx, hotelCacheKey(id)); err == nil {
			var hotel entities.HotelAlliance
			if err := json.Unmarshal(cached, &hotel); err == nil {
				hotels = append(hotels, &hotel)
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return hotels, nil
	}

	loaded, err := a.adapter.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, hotel := range loaded {
		if data, err := json.Marshal(hotel); err == nil {
			if err := a.cache.Set(ctx, hotelCacheKey(hotel.ID), data, catalogByIDTTL); err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("hotel_id", hotel.ID).Msg("failed to cache hotel")
			}
		}
	}

	return append(hotels, loaded...), nil
}

// List retrieves hotels with caching
func (a *CachedHotelAdapter) List(ctx context.Context, limit, offset int) ([]*entities.HotelAlliance, error) {
	return readThrough(ctx, a.cache, hotelsListCacheKey(limit, offset), catalogListTTL, func() ([]*entities.HotelAlliance, error) {
		return a.adapter.List(ctx, limit, offset)
	})
}

// Create creates a hotel and invalidates list caches
func (a *CachedHotelAdapter) Create(ctx context.Context, hotel *entities.HotelAlliance) error {
	if err := a.adapter.Create(ctx, hotel); err != nil {
		return err
	}
	invalidate(ctx, a.cache, nil, "hotels:list:*")
	return nil
}

// Update updates a hotel and invalidates its cache
func (a *CachedHotelAdapter) Update(ctx context.Context, hotel *entities.HotelAlliance) error {
	if err := a.adapter.Update(ctx, hotel); err != nil {
		return err
	}
	invalidate(ctx, a.cache, []string{hotelCacheKey(hotel.ID)}, "hotels:list:*")
	return nil
}

// Delete deletes a hotel and invalidates its cache
func (a *CachedHotelAdapter) Delete(ctx context.Context, id string) error {
	if err := a.adapter.Delete(ctx, id); err != nil {
		return err
	}
	invalidate(ctx, a.cache, []string{hotelCacheKey(id)}, "hotels:list:*")
	return nil
}

// CachedDoctorAdapter wraps a DoctorRepository with caching
type CachedDoctorAdapter struct {
	adapter repositories.DoctorRepository
	cache   providers.CacheProvider
}

// NewCachedDoctorAdapter creates a new cached doctor adapter
func NewCachedDoctorAdapter(adapter repositories.DoctorRepository, cache providers.CacheProvider) repositories.DoctorRepository {
	return &CachedDoctorAdapter{adapter: adapter, cache: cache}
}

// GetByID retrieves a doctor with caching. Profiles are cached under both ids.
func (a *CachedDoctorAdapter) GetByID(ctx context.Context, id string) (*entities.DoctorProfile, error) {
	return readThrough(ctx, a.cache, doctorCacheKey(id), catalogByIDTTL, func() (*entities.DoctorProfile, error) {
		return a.adapter.GetByID(ctx, id)
	})
}

// List retrieves doctors with caching
func (a *CachedDoctorAdapter) List(ctx context.Context, limit, offset int) ([]*entities.DoctorProfile, error) {
	return readThrough(ctx, a.cache, doctorsListCacheKey(limit, offset), catalogListTTL, func() ([]*entities.DoctorProfile, error) {
		return a.adapter.List(ctx, limit, offset)
	})
}

// Search is not cached
func (a *CachedDoctorAdapter) Search(ctx context.Context, query string, limit int) ([]*entities.DoctorProfile, error) {
	return a.adapter.Search(ctx, query, limit)
}

// Create creates a doctor and invalidates list caches
func (a *CachedDoctorAdapter) Create(ctx context.Context, doctor *entities.DoctorProfile) error {
	if err := a.adapter.Create(ctx, doctor); err != nil {
		return err
	}
	invalidate(ctx, a.cache, []string{doctorCacheKey(doctor.ID), doctorCacheKey(doctor.UserID)}, "doctors:list:*")
	return nil
}

// Update updates a doctor and invalidates its cache entries
func (a *CachedDoctorAdapter) Update(ctx context.Context, doctor *entities.DoctorProfile) error {
	if err := a.adapter.Update(ctx, doctor); err != nil {
		return err
	}
	invalidate(ctx, a.cache, []string{doctorCacheKey(doctor.ID), doctorCacheKey(doctor.UserID)}, "doctors:list:*")
	return nil
}
