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

// QuoteStore implements repositories.QuoteRepository
type QuoteStore struct {
	s *Store
}

func (r *QuoteStore) Create(ctx context.Context, quote *entities.Quote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.quotes[quote.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("quote %s already exists", quote.ID))
	}
	r.s.quotes[quote.ID] = quote.Clone()
	recordUndo(ctx, func() { delete(r.s.quotes, quote.ID) })
	return nil
}

func (r *QuoteStore) GetByID(ctx context.Context, id string) (*entities.Quote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q, ok := r.s.quotes[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("quote with id %s not found", id))
	}
	return q.Clone(), nil
}

func (r *QuoteStore) List(ctx context.Context, filter repositories.QuoteFilter) ([]*entities.Quote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matches := lo.Filter(lo.Values(r.s.quotes), func(q *entities.Quote, _ int) bool {
		return (filter.Status == "" || q.Status == filter.Status) &&
			(filter.PatientID == "" || q.PatientID == filter.PatientID) &&
			(filter.DoctorID == "" || q.DoctorID == filter.DoctorID)
	})
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	return lo.Map(page(matches, filter.Limit, filter.Offset), func(q *entities.Quote, _ int) *entities.Quote {
		return q.Clone()
	}), nil
}

func (r *QuoteStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*entities.Quote, error) {
	return r.List(ctx, repositories.QuoteFilter{PatientID: patientID, Limit: limit, Offset: offset})
}

func (r *QuoteStore) ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*entities.Quote, error) {
	return r.List(ctx, repositories.QuoteFilter{DoctorID: doctorID, Limit: limit, Offset: offset})
}

func (r *QuoteStore) Update(ctx context.Context, quote *entities.Quote, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.quotes[quote.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("quote with id %s not found", quote.ID))
	}
	if current.Version != expectedVersion {
		return apperrors.NewConflictError(fmt.Sprintf("quote %s was modified concurrently", quote.ID))
	}

	next := quote.Clone()
	next.Version = expectedVersion + 1
	next.CreatedAt = current.CreatedAt
	r.s.quotes[quote.ID] = next
	recordUndo(ctx, func() { r.s.quotes[quote.ID] = current })

	quote.Version = next.Version
	return nil
}
