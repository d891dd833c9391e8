package repositories

import (
	"context"

	"github.com/tmvsalud/medtour/internal/domain/entities"
)

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	Status  entities.PaymentStatus
	QuoteID string
	Limit   int
	Offset  int
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	Create(ctx context.Context, payment *entities.Payment) error
	GetByID(ctx context.Context, id string) (*entities.Payment, error)

	// GetByReference finds the payment with the given reference number on a quote
	GetByReference(ctx context.Context, quoteID, referenceNumber string) (*entities.Payment, error)

	List(ctx context.Context, filter PaymentFilter) ([]*entities.Payment, error)
	ListByQuote(ctx context.Context, quoteID string) ([]*entities.Payment, error)

	// UpdateReview stores the review outcome of a pending payment
	UpdateReview(ctx context.Context, payment *entities.Payment) error
}
