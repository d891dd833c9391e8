package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tmvsalud/medtour/internal/adapters/events"
	"github.com/tmvsalud/medtour/internal/adapters/locks"
	"github.com/tmvsalud/medtour/internal/adapters/memory"
	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/workflow"
)

var (
	admin   = entities.Actor{Role: entities.RoleAdmin, UserID: "admin-1"}
	doctor  = entities.Actor{Role: entities.RoleDoctor, UserID: "doctor-user-1"}
	patient = entities.Actor{Role: entities.RolePatient, UserID: "patient-1"}
)

type testEnv struct {
	store    *memory.Store
	bus      *events.LocalEventBus
	quotes   *QuoteService
	payments *PaymentService
	catalog  *CatalogService
	hotelID  string
	freeID   string
}

func newTestEnv(t *testing.T, defaultLogisticsFee int64) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	require.NoError(t, store.Doctors().Create(ctx, &entities.DoctorProfile{
		ID: "doctor-1", UserID: doctor.UserID, Name: "Dr. Ricardo Perez", Specialty: "Plastic Surgery", ConsultationFee: 100,
	}))
	require.NoError(t, store.Doctors().Create(ctx, &entities.DoctorProfile{
		ID: "doctor-2", UserID: "doctor-user-2", Name: "Dra. Ana Gil", Specialty: "General Medicine", IsFreeConsultation: true,
	}))
	require.NoError(t, store.Hotels().Create(ctx, &entities.HotelAlliance{
		ID: "hotel-1", Name: "Hotel Eurobuilding Express", PricePerNight: 120, MealPrice: 40,
	}))

	machine := workflow.NewMachine(store.Hotels(), workflow.Options{DefaultLogisticsFee: defaultLogisticsFee})
	locker := locks.NewLocalLocker()
	bus := events.NewLocalEventBus()
	t.Cleanup(func() { _ = bus.Close() })

	return &testEnv{
		store:    store,
		bus:      bus,
		quotes:   NewQuoteService(store.Quotes(), store.Payments(), store.Doctors(), store, machine, locker, bus, nil),
		payments: NewPaymentService(store.Payments(), store.Quotes(), store, machine, locker, bus, nil),
		catalog:  NewCatalogService(store.Hotels(), store.Doctors(), nil),
		hotelID:  "hotel-1",
		freeID:   "doctor-2",
	}
}

func ptr[T any](v T) *T { return &v }

// openReviewQuote creates the 3500 rhinoplasty quote in review
func (e *testEnv) openReviewQuote(t *testing.T) *QuoteView {
	t.Helper()
	view, err := e.quotes.Create(context.Background(), doctor, entities.NewQuote{
		PatientID: patient.UserID,
		DoctorID:  "doctor-1",
		Status:    entities.QuoteStatusReview,
		QuotePatch: entities.QuotePatch{
			SurgeryCost: ptr(int64(3500)),
			Diagnosis:   ptr("Rhinoplasty required."),
		},
	})
	require.NoError(t, err)
	return view
}

// confirmPatch is the patient's stay selection for a 7 night meal-plan stay
func (e *testEnv) confirmPatch(includeLogistics bool) entities.QuotePatch {
	return entities.QuotePatch{
		HotelID:          ptr(e.hotelID),
		StayDays:         ptr(int64(7)),
		IncludeMealPlan:  ptr(true),
		IncludeLogistics: ptr(includeLogistics),
		PatientName:      ptr("María González"),
		PatientPhone:     ptr("+584141234567"),
		PatientEmail:     ptr("maria@example.com"),
	}
}

// pendingPaymentQuote walks a quote to pending_payment
func (e *testEnv) pendingPaymentQuote(t *testing.T, includeLogistics bool) *QuoteView {
	t.Helper()
	ctx := context.Background()
	view := e.openReviewQuote(t)

	_, err := e.quotes.Transition(ctx, admin, view.ID, TransitionRequest{
		To:    entities.QuoteStatusReady,
		Patch: entities.QuotePatch{HotelID: ptr(e.hotelID)},
	})
	require.NoError(t, err)

	view, err = e.quotes.Transition(ctx, patient, view.ID, TransitionRequest{
		To:    entities.QuoteStatusPendingPayment,
		Patch: e.confirmPatch(includeLogistics),
	})
	require.NoError(t, err)
	return view
}

// MockMessageSender is a testify mock of providers.MessageSender
type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendText(ctx context.Context, to, body string) (string, error) {
	args := m.Called(ctx, to, body)
	return args.String(0), args.Error(1)
}

// MockDoctorSearchRepository is a testify mock of repositories.DoctorSearchRepository
type MockDoctorSearchRepository struct {
	mock.Mock
}

func (m *MockDoctorSearchRepository) Index(ctx context.Context, doctor *entities.DoctorProfile) error {
	return m.Called(ctx, doctor).Error(0)
}

func (m *MockDoctorSearchRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockDoctorSearchRepository) Search(ctx context.Context, query string, limit int) ([]string, error) {
	args := m.Called(ctx, query, limit)
	if ids := args.Get(0); ids != nil {
		return ids.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func waitFor(t *testing.T, ch <-chan *entities.QuoteEvent) *entities.QuoteEvent {
	t.Helper()
	select {
	case e := <-ch:
		require.NotNil(t, e)
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for quote event")
		return nil
	}
}
