package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmvsalud/medtour/internal/domain/entities"
)

func TestQuoteHandler_Workflow(t *testing.T) {
	s := newTestServer(t, 150)

	pending := s.createPendingQuote(t)
	assert.Equal(t, entities.QuoteStatusPendingPayment, pending.Status)
	assert.Equal(t, int64(4620), pending.TotalCost)
	assert.Equal(t, entities.CostBreakdown{Surgery: 3500, Hotel: 840, Meals: 280, Total: 4620}, pending.Breakdown)
	require.NotNil(t, pending.Hotel)
	assert.Equal(t, "Hotel Eurobuilding Express", pending.Hotel.Name)

	w := serve(s.quotes.GetQuote, s.newRequest(http.MethodGet, "/api/quotes/"+pending.ID, "", &admin, "id", pending.ID))
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[quoteBody](t, w)
	assert.Equal(t, pending.Version, got.Version)
	assert.ElementsMatch(t, []entities.QuoteStatus{entities.QuoteStatusPendingPayment, entities.QuoteStatusPaid, entities.QuoteStatusRejected}, got.AllowedTransitions)
}

func TestQuoteHandler_TransitionErrors(t *testing.T) {
	s := newTestServer(t, 150)

	w := serve(s.quotes.CreateQuote, s.newRequest(http.MethodPost, "/api/quotes", createQuoteBody, &doctor))
	require.Equal(t, http.StatusCreated, w.Code)
	quote := decodeBody[quoteBody](t, w)

	tests := []struct {
		name   string
		actor  *entities.Actor
		body   string
		status int
		errTyp string
		field  string
	}{
		{"client supplied total", &admin, `{"to":"ready","total_cost":1}`, http.StatusBadRequest, "INVALID_INPUT", "total_cost"},
		{"unknown target", &admin, `{"to":"shipped"}`, http.StatusBadRequest, "INVALID_INPUT", "to"},
		{"no rule for actor", &patient, `{"to":"rejected"}`, http.StatusConflict, "INVALID_STATE", ""},
		{"field not legal for rule", &admin, `{"to":"ready","surgery_cost":10}`, http.StatusUnprocessableEntity, "PRECONDITION_FAILED", "surgery_cost"},
		{"unknown hotel", &admin, `{"to":"ready","hotel_id":"nowhere"}`, http.StatusUnprocessableEntity, "PRECONDITION_FAILED", "hotel_id"},
		{"negative fee", &admin, `{"to":"review","logistics_fee":-5}`, http.StatusBadRequest, "INVALID_INPUT", "logistics_fee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s.quotes.TransitionQuote, s.newRequest(http.MethodPost, "/api/quotes/"+quote.ID+"/transitions", tt.body, tt.actor, "id", quote.ID))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			body := decodeBody[errorBody](t, w)
			assert.Equal(t, tt.errTyp, body.Type)
			assert.Equal(t, tt.field, body.Field)
		})
	}

	w = serve(s.quotes.GetQuote, s.newRequest(http.MethodGet, "/api/quotes/"+quote.ID, "", &admin, "id", quote.ID))
	after := decodeBody[quoteBody](t, w)
	assert.Equal(t, quote.Version, after.Version)
	assert.Equal(t, entities.QuoteStatusReview, after.Status)
}

func TestQuoteHandler_RequiresIdentity(t *testing.T) {
	s := newTestServer(t, 150)

	w := serve(s.quotes.CreateQuote, s.newRequest(http.MethodPost, "/api/quotes", createQuoteBody, nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeBody[errorBody](t, w).Type)
}

func TestQuoteHandler_GetNotFoundAndHidden(t *testing.T) {
	s := newTestServer(t, 150)

	w := serve(s.quotes.GetQuote, s.newRequest(http.MethodGet, "/api/quotes/missing", "", &admin, "id", "missing"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	pending := s.createPendingQuote(t)
	stranger := entities.Actor{Role: entities.RolePatient, UserID: "patient-2"}
	w = serve(s.quotes.GetQuote, s.newRequest(http.MethodGet, "/api/quotes/"+pending.ID, "", &stranger, "id", pending.ID))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestQuoteHandler_ListIncludesHotelSummary(t *testing.T) {
	s := newTestServer(t, 150)
	pending := s.createPendingQuote(t)

	w := serve(s.quotes.ListQuotes, s.newRequest(http.MethodGet, "/api/quotes?status=pending_payment", "", &patient))
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody[struct {
		Quotes []struct {
			ID    string                 `json:"id"`
			Hotel *entities.HotelSummary `json:"hotel"`
		} `json:"quotes"`
		Count int `json:"count"`
	}](t, w)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, pending.ID, body.Quotes[0].ID)
	require.NotNil(t, body.Quotes[0].Hotel)
	assert.Equal(t, int64(120), body.Quotes[0].Hotel.PricePerNight)

	w = serve(s.quotes.ListQuotes, s.newRequest(http.MethodGet, "/api/quotes?status=bogus", "", &patient))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
