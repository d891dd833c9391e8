package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

// HotelStore implements repositories.HotelRepository
type HotelStore struct {
	s *Store
}

func cloneHotel(h *entities.HotelAlliance) *entities.HotelAlliance {
	c := *h
	c.ImageURLs = append([]string(nil), h.ImageURLs...)
	c.Amenities = append([]string(nil), h.Amenities...)
	return &c
}

func (r *HotelStore) Create(ctx context.Context, hotel *entities.HotelAlliance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.hotels[hotel.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("hotel %s already exists", hotel.ID))
	}
	r.s.hotels[hotel.ID] = cloneHotel(hotel)
	return nil
}

func (r *HotelStore) GetByID(ctx context.Context, id string) (*entities.HotelAlliance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	h, ok := r.s.hotels[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("hotel with id %s not found", id))
	}
	return cloneHotel(h), nil
}

func (r *HotelStore) GetByIDs(ctx context.Context, ids []string) ([]*entities.HotelAlliance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entities.HotelAlliance
	for _, id := range lo.Uniq(ids) {
		if h, ok := r.s.hotels[id]; ok {
			out = append(out, cloneHotel(h))
		}
	}
	return out, nil
}

func (r *HotelStore) List(ctx context.Context, limit, offset int) ([]*entities.HotelAlliance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	hotels := lo.Values(r.s.hotels)
	sort.Slice(hotels, func(i, j int) bool { return hotels[i].Name < hotels[j].Name })
	return lo.Map(page(hotels, limit, offset), func(h *entities.HotelAlliance, _ int) *entities.HotelAlliance {
		return cloneHotel(h)
	}), nil
}

func (r *HotelStore) Update(ctx context.Context, hotel *entities.HotelAlliance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.hotels[hotel.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("hotel with id %s not found", hotel.ID))
	}
	next := cloneHotel(hotel)
	next.CreatedAt = current.CreatedAt
	r.s.hotels[hotel.ID] = next
	return nil
}

func (r *HotelStore) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.hotels[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("hotel with id %s not found", id))
	}
	for _, q := range r.s.quotes {
		if q.HotelID != nil && *q.HotelID == id {
			return apperrors.NewConflictError(fmt.Sprintf("hotel %s is referenced by quotes", id))
		}
	}
	delete(r.s.hotels, id)
	return nil
}

// DoctorStore implements repositories.DoctorRepository
type DoctorStore struct {
	s *Store
}

func cloneDoctor(d *entities.DoctorProfile) *entities.DoctorProfile {
	c := *d
	c.ImageURLs = append([]string(nil), d.ImageURLs...)
	return &c
}

func (r *DoctorStore) Create(ctx context.Context, doctor *entities.DoctorProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, d := range r.s.doctors {
		if d.ID == doctor.ID || d.UserID == doctor.UserID {
			return apperrors.NewConflictError(fmt.Sprintf("doctor profile for user %s already exists", doctor.UserID))
		}
	}
	r.s.doctors[doctor.ID] = cloneDoctor(doctor)
	return nil
}

func (r *DoctorStore) GetByID(ctx context.Context, id string) (*entities.DoctorProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if d, ok := r.s.doctors[id]; ok {
		return cloneDoctor(d), nil
	}
	d, ok := lo.Find(lo.Values(r.s.doctors), func(d *entities.DoctorProfile) bool { return d.UserID == id })
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor with id %s not found", id))
	}
	return cloneDoctor(d), nil
}

func (r *DoctorStore) List(ctx context.Context, limit, offset int) ([]*entities.DoctorProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.sorted(lo.Values(r.s.doctors), limit, offset), nil
}

func (r *DoctorStore) Search(ctx context.Context, query string, limit int) ([]*entities.DoctorProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := strings.ToLower(query)
	matches := lo.Filter(lo.Values(r.s.doctors), func(d *entities.DoctorProfile, _ int) bool {
		return strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.Specialty), q)
	})
	return r.sorted(matches, limit, 0), nil
}

func (r *DoctorStore) sorted(doctors []*entities.DoctorProfile, limit, offset int) []*entities.DoctorProfile {
	sort.Slice(doctors, func(i, j int) bool { return doctors[i].Name < doctors[j].Name })
	return lo.Map(page(doctors, limit, offset), func(d *entities.DoctorProfile, _ int) *entities.DoctorProfile {
		return cloneDoctor(d)
	})
}

func (r *DoctorStore) Update(ctx context.Context, doctor *entities.DoctorProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.doctors[doctor.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("doctor with id %s not found", doctor.ID))
	}
	next := cloneDoctor(doctor)
	next.CreatedAt = current.CreatedAt
	r.s.doctors[doctor.ID] = next
	return nil
}
