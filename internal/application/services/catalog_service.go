package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

// CatalogService manages the hotel alliances and the doctor directory
type CatalogService struct {
	hotels     repositories.HotelRepository
	doctors    repositories.DoctorRepository
	searchRepo repositories.DoctorSearchRepository
	now        func() time.Time
}

// NewCatalogService creates a new catalog service. searchRepo may be nil.
func NewCatalogService(hotels repositories.HotelRepository, doctors repositories.DoctorRepository, searchRepo repositories.DoctorSearchRepository) *CatalogService {
	return &CatalogService{
		hotels:     hotels,
		doctors:    doctors,
		searchRepo: searchRepo,
		now:        time.Now,
	}
}

// ListHotels lists hotel alliances by name
func (s *CatalogService) ListHotels(ctx context.Context, limit, offset int) ([]*entities.HotelAlliance, error) {
	limit, offset = normalizePage(limit, offset)
	return s.hotels.List(ctx, limit, offset)
}

// GetHotel retrieves a hotel by ID
func (s *CatalogService) GetHotel(ctx context.Context, id string) (*entities.HotelAlliance, error) {
	return s.hotels.GetByID(ctx, id)
}

// GetHotels retrieves several hotels at once
func (s *CatalogService) GetHotels(ctx context.Context, ids []string) ([]*entities.HotelAlliance, error) {
	return s.hotels.GetByIDs(ctx, ids)
}

// CreateHotel adds a hotel alliance
func (s *CatalogService) CreateHotel(ctx context.Context, actor entities.Actor, hotel *entities.HotelAlliance) error {
	if !actor.IsAdmin() {
		return apperrors.NewUnauthorizedError("only admins may manage hotels")
	}
	if err := validateHotel(hotel); err != nil {
		return err
	}

	now := s.now().UTC()
	hotel.ID = uuid.NewString()
	hotel.CreatedAt = now
	hotel.UpdatedAt = now
	return s.hotels.Create(ctx, hotel)
}

// UpdateHotel replaces a hotel's editable fields
func (s *CatalogService) UpdateHotel(ctx context.Context, actor entities.Actor, id string, hotel *entities.HotelAlliance) error {
	if !actor.IsAdmin() {
		return apperrors.NewUnauthorizedError("only admins may manage hotels")
	}
	if err := validateHotel(hotel); err != nil {
		return err
	}

	current, err := s.hotels.GetByID(ctx, id)
	if err != nil {
		return err
	}
	hotel.ID = id
	hotel.CreatedAt = current.CreatedAt
	hotel.UpdatedAt = s.now().UTC()
	return s.hotels.Update(ctx, hotel)
}

// DeleteHotel removes a hotel no quote references
func (s *CatalogService) DeleteHotel(ctx context.Context, actor entities.Actor, id string) error {
	if !actor.IsAdmin() {
		return apperrors.NewUnauthorizedError("only admins may manage hotels")
	}
	return s.hotels.Delete(ctx, id)
}

// ListDoctors lists the doctor directory by name
func (s *CatalogService) ListDoctors(ctx context.Context, limit, offset int) ([]*entities.DoctorProfile, error) {
	limit, offset = normalizePage(limit, offset)
	return s.doctors.List(ctx, limit, offset)
}

// GetDoctor resolves a doctor by profile id or user id
func (s *CatalogService) GetDoctor(ctx context.Context, id string) (*entities.DoctorProfile, error) {
	return s.doctors.GetByID(ctx, id)
}

// CreateDoctor adds a profile. Doctors may only create their own.
func (s *CatalogService) CreateDoctor(ctx context.Context, actor entities.Actor, doctor *entities.DoctorProfile) error {
	if err := canEditDoctor(actor, doctor.UserID); err != nil {
		return err
	}
	if actor.Role == entities.RoleDoctor && doctor.UserID == "" {
		doctor.UserID = actor.UserID
	}
	if err := validateDoctor(doctor); err != nil {
		return err
	}

	now := s.now().UTC()
	doctor.ID = uuid.NewString()
	doctor.CreatedAt = now
	doctor.UpdatedAt = now
	if err := s.doctors.Create(ctx, doctor); err != nil {
		return err
	}

	s.index(ctx, doctor)
	return nil
}

// UpdateDoctor replaces a profile's editable fields
func (s *CatalogService) UpdateDoctor(ctx context.Context, actor entities.Actor, id string, doctor *entities.DoctorProfile) error {
	current, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := canEditDoctor(actor, current.UserID); err != nil {
		return err
	}

	doctor.ID = current.ID
	doctor.UserID = current.UserID
	doctor.CreatedAt = current.CreatedAt
	doctor.UpdatedAt = s.now().UTC()
	if err := validateDoctor(doctor); err != nil {
		return err
	}
	if err := s.doctors.Update(ctx, doctor); err != nil {
		return err
	}

	s.index(ctx, doctor)
	return nil
}

// SearchDoctors matches name or specialty. The search index is preferred;
// the store is used when the index is absent or failing.
func (s *CatalogService) SearchDoctors(ctx context.Context, query string, limit int) ([]*entities.DoctorProfile, error) {
	limit, _ = normalizePage(limit, 0)
	query = strings.TrimSpace(query)

	if s.searchRepo != nil {
		ids, err := s.searchRepo.Search(ctx, query, limit)
		if err == nil {
			return s.resolveDoctors(ctx, ids)
		}
		log.Ctx(ctx).Warn().Err(err).Str("query", query).Msg("doctor search index unavailable, falling back to store")
	}

	return s.doctors.Search(ctx, query, limit)
}

// ReindexDoctors pushes every stored profile to the search index
func (s *CatalogService) ReindexDoctors(ctx context.Context) (int, error) {
	if s.searchRepo == nil {
		return 0, nil
	}

	indexed := 0
	for offset := 0; ; offset += maxPageSize {
		page, err := s.doctors.List(ctx, maxPageSize, offset)
		if err != nil {
			return indexed, err
		}
		for _, doctor := range page {
			if err := s.searchRepo.Index(ctx, doctor); err != nil {
				return indexed, fmt.Errorf("failed to index doctor %s: %w", doctor.ID, err)
			}
			indexed++
		}
		if len(page) < maxPageSize {
			return indexed, nil
		}
	}
}

func (s *CatalogService) resolveDoctors(ctx context.Context, ids []string) ([]*entities.DoctorProfile, error) {
	doctors := make([]*entities.DoctorProfile, 0, len(ids))
	for _, id := range ids {
		doctor, err := s.doctors.GetByID(ctx, id)
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			// index lags behind the store
			continue
		}
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, doctor)
	}
	return doctors, nil
}

func (s *CatalogService) index(ctx context.Context, doctor *entities.DoctorProfile) {
	if s.searchRepo == nil {
		return
	}
	if err := s.searchRepo.Index(ctx, doctor); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("doctor_id", doctor.ID).Msg("failed to index doctor")
	}
}

func canEditDoctor(actor entities.Actor, ownerUserID string) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.Role == entities.RoleDoctor && (ownerUserID == "" || ownerUserID == actor.UserID):
		return nil
	}
	return apperrors.NewUnauthorizedError("only admins or the owning doctor may edit a doctor profile")
}

func validateHotel(h *entities.HotelAlliance) error {
	if strings.TrimSpace(h.Name) == "" {
		return apperrors.NewValidationError("name is required")
	}
	if h.PricePerNight < 0 {
		return apperrors.NewInvalidInputError("price_per_night", "price_per_night must not be negative")
	}
	if h.MealPrice < 0 {
		return apperrors.NewInvalidInputError("meal_price", "meal_price must not be negative")
	}
	return nil
}

func validateDoctor(d *entities.DoctorProfile) error {
	if strings.TrimSpace(d.UserID) == "" {
		return apperrors.NewValidationError("user_id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return apperrors.NewValidationError("name is required")
	}
	if d.ConsultationFee < 0 {
		return apperrors.NewInvalidInputError("consultation_fee", "consultation_fee must not be negative")
	}
	return nil
}
