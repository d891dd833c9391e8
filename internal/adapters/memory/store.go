// Package memory provides in-memory repositories used by tests and by the
// STORAGE_DRIVER=memory mode.
package memory

import (
	"context"
	"sync"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
)

var (
	_ repositories.QuoteRepository    = (*QuoteStore)(nil)
	_ repositories.PaymentRepository  = (*PaymentStore)(nil)
	_ repositories.HotelRepository    = (*HotelStore)(nil)
	_ repositories.DoctorRepository   = (*DoctorStore)(nil)
	_ repositories.TransactionManager = (*Store)(nil)
)

// Store holds every table behind one lock
type Store struct {
	mu       sync.RWMutex
	quotes   map[string]*entities.Quote
	payments map[string]*entities.Payment
	hotels   map[string]*entities.HotelAlliance
	doctors  map[string]*entities.DoctorProfile
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		quotes:   make(map[string]*entities.Quote),
		payments: make(map[string]*entities.Payment),
		hotels:   make(map[string]*entities.HotelAlliance),
		doctors:  make(map[string]*entities.DoctorProfile),
	}
}

// Quotes returns the quote repository view
func (s *Store) Quotes() *QuoteStore { return &QuoteStore{s: s} }

// Payments returns the payment repository view
func (s *Store) Payments() *PaymentStore { return &PaymentStore{s: s} }

// Hotels returns the hotel repository view
func (s *Store) Hotels() *HotelStore { return &HotelStore{s: s} }

// Doctors returns the doctor repository view
func (s *Store) Doctors() *DoctorStore { return &DoctorStore{s: s} }

type txKey struct{}

// undoLog collects compensations for writes made inside WithinTx
type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

// WithinTx runs fn; if it fails, writes made through ctx are reverted in reverse order
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*undoLog); ok {
		return fn(ctx)
	}

	log := &undoLog{}
	if err := fn(context.WithValue(ctx, txKey{}, log)); err != nil {
		s.mu.Lock()
		for i := len(log.steps) - 1; i >= 0; i-- {
			log.steps[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// recordUndo registers a compensation; callers hold s.mu
func recordUndo(ctx context.Context, undo func()) {
	if log, ok := ctx.Value(txKey{}).(*undoLog); ok {
		log.mu.Lock()
		log.steps = append(log.steps, undo)
		log.mu.Unlock()
	}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
