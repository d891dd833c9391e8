package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmvsalud/medtour/internal/adapters/events"
	"github.com/tmvsalud/medtour/internal/adapters/locks"
	"github.com/tmvsalud/medtour/internal/adapters/memory"
	"github.com/tmvsalud/medtour/internal/api/handlers"
	"github.com/tmvsalud/medtour/internal/api/loaders"
	"github.com/tmvsalud/medtour/internal/api/middleware"
	"github.com/tmvsalud/medtour/internal/application/services"
	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/workflow"
)

var (
	admin   = entities.Actor{Role: entities.RoleAdmin, UserID: "admin-1"}
	doctor  = entities.Actor{Role: entities.RoleDoctor, UserID: "doctor-user-1"}
	patient = entities.Actor{Role: entities.RolePatient, UserID: "patient-1"}
)

type testServer struct {
	store    *memory.Store
	bus      *events.LocalEventBus
	quotes   *handlers.QuoteHandler
	payments *handlers.PaymentHandler
	catalog  *handlers.CatalogHandler
	pricing  *handlers.PricingHandler
	sse      *handlers.SSEHandler
}

func newTestServer(t *testing.T, defaultLogisticsFee int64) *testServer {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	require.NoError(t, store.Doctors().Create(ctx, &entities.DoctorProfile{
		ID: "doctor-1", UserID: doctor.UserID, Name: "Dr. Ricardo Perez", Specialty: "Plastic Surgery", ConsultationFee: 100,
	}))
	require.NoError(t, store.Hotels().Create(ctx, &entities.HotelAlliance{
		ID: "hotel-1", Name: "Hotel Eurobuilding Express", PricePerNight: 120, MealPrice: 40,
	}))

	machine := workflow.NewMachine(store.Hotels(), workflow.Options{DefaultLogisticsFee: defaultLogisticsFee})
	locker := locks.NewLocalLocker()
	bus := events.NewLocalEventBus()
	t.Cleanup(func() { _ = bus.Close() })

	quoteSvc := services.NewQuoteService(store.Quotes(), store.Payments(), store.Doctors(), store, machine, locker, bus, nil)
	paymentSvc := services.NewPaymentService(store.Payments(), store.Quotes(), store, machine, locker, bus, nil)
	catalogSvc := services.NewCatalogService(store.Hotels(), store.Doctors(), nil)

	return &testServer{
		store:    store,
		bus:      bus,
		quotes:   handlers.NewQuoteHandler(quoteSvc),
		payments: handlers.NewPaymentHandler(paymentSvc),
		catalog:  handlers.NewCatalogHandler(catalogSvc),
		pricing:  handlers.NewPricingHandler(catalogSvc, defaultLogisticsFee),
		sse:      handlers.NewSSEHandler(bus, quoteSvc),
	}
}

// newRequest builds a request as the given actor; a nil actor is anonymous
func (s *testServer) newRequest(method, target, body string, actor *entities.Actor, pathValues ...string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	ctx := loaders.WithLoaders(req.Context(), loaders.NewLoaders(s.store.Hotels()))
	if actor != nil {
		ctx = middleware.WithActor(ctx, *actor)
	}
	return req.WithContext(ctx)
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
	Field string `json:"field"`
}

type quoteBody struct {
	entities.Quote
	Breakdown          entities.CostBreakdown `json:"breakdown"`
	Hotel              *entities.HotelSummary `json:"hotel"`
	AllowedTransitions []entities.QuoteStatus `json:"allowed_transitions"`
}

const createQuoteBody = `{
	"patient_id": "patient-1",
	"doctor_id": "doctor-1",
	"status": "review",
	"surgery_cost": 3500,
	"diagnosis": "Rhinoplasty required."
}`

const confirmBody = `{
	"to": "pending_payment",
	"hotel_id": "hotel-1",
	"stay_days": 7,
	"include_meal_plan": true,
	"include_logistics": false,
	"patient_name": "María González",
	"patient_phone": "+584141234567",
	"patient_email": "maria@example.com"
}`

// createPendingQuote drives a quote to pending_payment through the handlers
func (s *testServer) createPendingQuote(t *testing.T) quoteBody {
	t.Helper()

	w := serve(s.quotes.CreateQuote, s.newRequest(http.MethodPost, "/api/quotes", createQuoteBody, &doctor))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[quoteBody](t, w)

	w = serve(s.quotes.TransitionQuote, s.newRequest(http.MethodPost, "/api/quotes/"+created.ID+"/transitions",
		`{"to":"ready","hotel_id":"hotel-1"}`, &admin, "id", created.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(s.quotes.TransitionQuote, s.newRequest(http.MethodPost, "/api/quotes/"+created.ID+"/transitions",
		confirmBody, &patient, "id", created.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decodeBody[quoteBody](t, w)
}
