// Package loaders batches catalog lookups made while rendering a single request.
package loaders

import (
	"context"
	"net/http"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders contains the per-request dataloaders
type Loaders struct {
	HotelLoader *dataloader.Loader[string, *entities.HotelAlliance]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(hotelRepo repositories.HotelRepository) *Loaders {
	return &Loaders{
		HotelLoader: dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[*entities.HotelAlliance] {
			results := make([]*dataloader.Result[*entities.HotelAlliance], len(keys))
			hotels, err := hotelRepo.GetByIDs(ctx, keys)

			hotelMap := make(map[string]*entities.HotelAlliance, len(hotels))
			for _, h := range hotels {
				hotelMap[h.ID] = h
			}

			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[*entities.HotelAlliance]{Error: err}
				} else if h, ok := hotelMap[key]; ok {
					results[i] = &dataloader.Result[*entities.HotelAlliance]{Data: h}
				} else {
					results[i] = &dataloader.Result[*entities.HotelAlliance]{Error: apperrors.NewNotFoundError("hotel " + key + " not found")}
				}
			}
			return results
		}),
	}
}

// HotelSummaries resolves the hotel of every quote in one batch. Quotes
// without a hotel, or whose hotel no longer exists, are absent from the map.
func (l *Loaders) HotelSummaries(ctx context.Context, quotes []*entities.Quote) (map[string]*entities.HotelSummary, error) {
	thunks := make(map[string]dataloader.Thunk[*entities.HotelAlliance])
	for _, q := range quotes {
		if q.HotelID == nil || *q.HotelID == "" {
			continue
		}
		if _, ok := thunks[*q.HotelID]; !ok {
			thunks[*q.HotelID] = l.HotelLoader.Load(ctx, *q.HotelID)
		}
	}

	summaries := make(map[string]*entities.HotelSummary, len(thunks))
	for id, thunk := range thunks {
		hotel, err := thunk()
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries[id] = hotel.Summary()
	}
	return summaries, nil
}

// For returns the loaders for a given context, or nil when none are attached
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// Middleware attaches fresh loaders to every request
func Middleware(hotelRepo repositories.HotelRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(hotelRepo))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
