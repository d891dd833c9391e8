package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

// PaymentStore implements repositories.PaymentRepository
type PaymentStore struct {
	s *Store
}

func clonePayment(p *entities.Payment) *entities.Payment {
	c := *p
	if p.ReviewedBy != nil {
		v := *p.ReviewedBy
		c.ReviewedBy = &v
	}
	if p.ReviewedAt != nil {
		v := *p.ReviewedAt
		c.ReviewedAt = &v
	}
	return &c
}

func (r *PaymentStore) Create(ctx context.Context, payment *entities.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.quotes[payment.QuoteID]; !exists {
		return apperrors.NewNotFoundError(fmt.Sprintf("quote with id %s not found", payment.QuoteID))
	}
	for _, p := range r.s.payments {
		if p.QuoteID == payment.QuoteID && p.ReferenceNumber == payment.ReferenceNumber {
			return apperrors.NewConflictError("failed to create payment: record already exists")
		}
	}
	r.s.payments[payment.ID] = clonePayment(payment)
	recordUndo(ctx, func() { delete(r.s.payments, payment.ID) })
	return nil
}

func (r *PaymentStore) GetByID(ctx context.Context, id string) (*entities.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.payments[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment with id %s not found", id))
	}
	return clonePayment(p), nil
}

func (r *PaymentStore) GetByReference(ctx context.Context, quoteID, referenceNumber string) (*entities.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := lo.Find(lo.Values(r.s.payments), func(p *entities.Payment) bool {
		return p.QuoteID == quoteID && p.ReferenceNumber == referenceNumber
	})
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment %s for quote %s not found", referenceNumber, quoteID))
	}
	return clonePayment(p), nil
}

func (r *PaymentStore) List(ctx context.Context, filter repositories.PaymentFilter) ([]*entities.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matches := lo.Filter(lo.Values(r.s.payments), func(p *entities.Payment, _ int) bool {
		return (filter.Status == "" || p.Status == filter.Status) &&
			(filter.QuoteID == "" || p.QuoteID == filter.QuoteID)
	})
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].SubmittedAt.Equal(matches[j].SubmittedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].SubmittedAt.After(matches[j].SubmittedAt)
	})

	return lo.Map(page(matches, filter.Limit, filter.Offset), func(p *entities.Payment, _ int) *entities.Payment {
		return clonePayment(p)
	}), nil
}

func (r *PaymentStore) ListByQuote(ctx context.Context, quoteID string) ([]*entities.Payment, error) {
	return r.List(ctx, repositories.PaymentFilter{QuoteID: quoteID})
}

func (r *PaymentStore) UpdateReview(ctx context.Context, payment *entities.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.payments[payment.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("payment with id %s not found", payment.ID))
	}
	if current.Status != entities.PaymentStatusPending {
		return apperrors.NewInvalidStateError(fmt.Sprintf("payment %s is no longer pending", payment.ID))
	}

	next := clonePayment(current)
	next.Status = payment.Status
	next.ReviewedBy = payment.ReviewedBy
	next.ReviewedAt = payment.ReviewedAt
	r.s.payments[payment.ID] = next
	recordUndo(ctx, func() { r.s.payments[payment.ID] = current })
	return nil
}
