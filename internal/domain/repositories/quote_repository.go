package repositories

import (
	"context"

	"github.com/tmvsalud/medtour/internal/domain/entities"
)

// QuoteFilter narrows quote listings. Empty fields do not filter.
type QuoteFilter struct {
	Status    entities.QuoteStatus
	PatientID string
	DoctorID  string
	Limit     int
	Offset    int
}

// QuoteRepository defines the interface for quote data operations
type QuoteRepository interface {
	// Create persists a new quote; id, timestamps and version must already be set
	Create(ctx context.Context, quote *entities.Quote) error

	// GetByID retrieves a quote by ID
	GetByID(ctx context.Context, id string) (*entities.Quote, error)

	// List retrieves quotes newest first
	List(ctx context.Context, filter QuoteFilter) ([]*entities.Quote, error)

	// ListByPatient retrieves quotes owned by a patient
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*entities.Quote, error)

	// ListByDoctor retrieves quotes proposed by a doctor
	ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*entities.Quote, error)

	// Update writes the quote if the stored version still equals expectedVersion,
	// then sets quote.Version to expectedVersion+1. A stale version yields a Conflict error.
	Update(ctx context.Context, quote *entities.Quote, expectedVersion int64) error
}
