package handlers

import (
	"context"
	"net/http"

	"github.com/samber/lo"

	"github.com/tmvsalud/medtour/internal/api/loaders"
	"github.com/tmvsalud/medtour/internal/application/services"
	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

// QuoteService defines the quote operations used by the handler.
type QuoteService interface {
	Create(ctx context.Context, actor entities.Actor, req entities.NewQuote) (*services.QuoteView, error)
	Get(ctx context.Context, actor entities.Actor, id string) (*services.QuoteView, error)
	List(ctx context.Context, actor entities.Actor, filter repositories.QuoteFilter) ([]*entities.Quote, error)
	Transition(ctx context.Context, actor entities.Actor, id string, req services.TransitionRequest) (*services.QuoteView, error)
}

// QuoteHandler handles quote workflow requests
type QuoteHandler struct {
	service QuoteService
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(service QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// quoteListItem is a listed quote with its hotel summary
type quoteListItem struct {
	*entities.Quote
	Hotel *entities.HotelSummary `json:"hotel,omitempty"`
}

// transitionPayload is `{"to": status, ...writable fields}`
type transitionPayload struct {
	To string `json:"to"`
	entities.QuotePatch
}

// CreateQuote handles POST /api/quotes
func (h *QuoteHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req entities.NewQuote
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	view, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, view)
}

// ListQuotes handles GET /api/quotes
func (h *QuoteHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := repositories.QuoteFilter{
		PatientID: query.Get("patient_id"),
		DoctorID:  query.Get("doctor_id"),
	}
	filter.Limit, filter.Offset = pageParams(r)
	if raw := query.Get("status"); raw != "" {
		status, err := entities.ParseQuoteStatus(raw)
		if err != nil {
			respondWithAppError(w, r, apperrors.NewInvalidInputError("status", err.Error()))
			return
		}
		filter.Status = status
	}

	quotes, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var hotels map[string]*entities.HotelSummary
	if l := loaders.For(r.Context()); l != nil {
		if hotels, err = l.HotelSummaries(r.Context(), quotes); err != nil {
			respondWithAppError(w, r, err)
			return
		}
	}

	items := lo.Map(quotes, func(q *entities.Quote, _ int) quoteListItem {
		item := quoteListItem{Quote: q}
		if q.HotelID != nil {
			item.Hotel = hotels[*q.HotelID]
		}
		return item
	})

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"quotes": items,
		"count":  len(items),
	})
}

// GetQuote handles GET /api/quotes/{id}
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	view, err := h.service.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// TransitionQuote handles POST /api/quotes/{id}/transitions
func (h *QuoteHandler) TransitionQuote(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var payload transitionPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	to, err := entities.ParseQuoteStatus(payload.To)
	if err != nil {
		respondWithAppError(w, r, apperrors.NewInvalidInputError("to", err.Error()))
		return
	}

	view, err := h.service.Transition(r.Context(), actor, r.PathValue("id"), services.TransitionRequest{
		To:    to,
		Patch: payload.QuotePatch,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}
