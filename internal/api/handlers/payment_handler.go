package handlers

import (
	"context"
	"net/http"

	"github.com/tmvsalud/medtour/internal/application/services"
	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

// PaymentService defines the payment operations used by the handler.
type PaymentService interface {
	Submit(ctx context.Context, actor entities.Actor, sub entities.PaymentSubmission) (*entities.Payment, bool, error)
	Review(ctx context.Context, actor entities.Actor, paymentID string, decision entities.ReviewDecision) (*services.ReviewResult, error)
	Get(ctx context.Context, actor entities.Actor, id string) (*entities.Payment, error)
	List(ctx context.Context, actor entities.Actor, filter repositories.PaymentFilter) ([]*entities.Payment, error)
	ListForQuote(ctx context.Context, actor entities.Actor, quoteID string) ([]*entities.Payment, error)
}

// PaymentHandler handles manual payment intake and review
type PaymentHandler struct {
	service PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type reviewRequest struct {
	Decision entities.ReviewDecision `json:"decision"`
}

// SubmitPayment handles POST /api/payments. A replayed submission answers 200 with the stored payment.
func (h *PaymentHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var sub entities.PaymentSubmission
	if err := decodeJSON(w, r, &sub); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	payment, replayed, err := h.service.Submit(r.Context(), actor, sub)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	respondWithJSON(w, status, payment)
}

// ListPayments handles GET /api/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := repositories.PaymentFilter{QuoteID: query.Get("quote_id")}
	filter.Limit, filter.Offset = pageParams(r)
	switch status := entities.PaymentStatus(query.Get("status")); status {
	case "", entities.PaymentStatusPending, entities.PaymentStatusApproved, entities.PaymentStatusRejected:
		filter.Status = status
	default:
		respondWithAppError(w, r, apperrors.NewInvalidInputError("status", "unknown payment status: "+string(status)))
		return
	}

	payments, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"payments": payments,
		"count":    len(payments),
	})
}

// GetPayment handles GET /api/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	payment, err := h.service.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, payment)
}

// ReviewPayment handles POST /api/payments/{id}/review
func (h *PaymentHandler) ReviewPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	res, err := h.service.Review(r.Context(), actor, r.PathValue("id"), req.Decision)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, res)
}

// ListQuotePayments handles GET /api/quotes/{id}/payments
func (h *PaymentHandler) ListQuotePayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListForQuote(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"payments": payments,
		"count":    len(payments),
	})
}
