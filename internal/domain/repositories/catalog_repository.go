package repositories

import (
	"context"

	"github.com/tmvsalud/medtour/internal/domain/entities"
)

// HotelRepository defines the interface for hotel alliance operations
type HotelRepository interface {
	Create(ctx context.Context, hotel *entities.HotelAlliance) error
	GetByID(ctx context.Context, id string) (*entities.HotelAlliance, error)

	// GetByIDs retrieves several hotels in one round trip; unknown ids are omitted
	GetByIDs(ctx context.Context, ids []string) ([]*entities.HotelAlliance, error)

	List(ctx context.Context, limit, offset int) ([]*entities.HotelAlliance, error)
	Update(ctx context.Context, hotel *entities.HotelAlliance) error
	Delete(ctx context.Context, id string) error
}

// DoctorRepository defines the interface for doctor profile operations
type DoctorRepository interface {
	Create(ctx context.Context, doctor *entities.DoctorProfile) error

	// GetByID resolves a profile by its id or by the owning user id
	GetByID(ctx context.Context, id string) (*entities.DoctorProfile, error)

	List(ctx context.Context, limit, offset int) ([]*entities.DoctorProfile, error)
	Update(ctx context.Context, doctor *entities.DoctorProfile) error

	// Search matches name or specialty
	Search(ctx context.Context, query string, limit int) ([]*entities.DoctorProfile, error)
}

// DoctorSearchRepository is the full-text doctor directory index
type DoctorSearchRepository interface {
	Index(ctx context.Context, doctor *entities.DoctorProfile) error
	Delete(ctx context.Context, id string) error

	// Search returns matching doctor ids ordered by relevance
	Search(ctx context.Context, query string, limit int) ([]string, error)
}
