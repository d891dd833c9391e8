package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/providers"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

func TestQuoteService_FullScenario(t *testing.T) {
	env := newTestEnv(t, 150)
	ctx := context.Background()

	events, err := env.bus.Subscribe(ctx, providers.EventChannelQuoteUpdates)
	require.NoError(t, err)

	created := env.openReviewQuote(t)
	assert.Equal(t, entities.QuoteStatusReview, created.Status)
	assert.Equal(t, doctor.UserID, created.DoctorID)
	assert.Equal(t, int64(3500), created.TotalCost)
	assert.Equal(t, entities.QuoteEventTypeCreated, waitFor(t, events).EventType)

	ready, err := env.quotes.Transition(ctx, admin, created.ID, TransitionRequest{
		To:    entities.QuoteStatusReady,
		Patch: entities.QuotePatch{HotelID: ptr(env.hotelID)},
	})
	require.NoError(t, err)
	assert.Equal(t, entities.QuoteStatusReady, ready.Status)
	assert.Equal(t, "Hotel Eurobuilding Express", ready.Hotel.Name)

	event := waitFor(t, events)
	assert.Equal(t, entities.QuoteStatusReview, event.FromStatus)
	assert.Equal(t, entities.QuoteStatusReady, event.ToStatus)

	confirmed, err := env.quotes.Transition(ctx, patient, created.ID, TransitionRequest{
		To:    entities.QuoteStatusPendingPayment,
		Patch: env.confirmPatch(false),
	})
	require.NoError(t, err)
	assert.Equal(t, entities.QuoteStatusPendingPayment, confirmed.Status)
	assert.Equal(t, int64(4620), confirmed.TotalCost)
	assert.Equal(t, entities.CostBreakdown{Surgery: 3500, Hotel: 840, Meals: 280, Total: 4620}, confirmed.Breakdown)
	assert.Equal(t, int64(3), confirmed.Version)

	got, err := env.quotes.Get(ctx, patient, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4620), got.TotalCost)
	assert.Empty(t, got.AllowedTransitions)
}

func TestQuoteService_IllegalTransitionLeavesQuoteUnchanged(t *testing.T) {
	env := newTestEnv(t, 150)
	ctx := context.Background()
	pending := env.pendingPaymentQuote(t, false)

	_, err := env.quotes.Transition(ctx, patient, pending.ID, TransitionRequest{To: entities.QuoteStatusReview})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))

	_, err = env.quotes.Transition(ctx, admin, pending.ID, TransitionRequest{
		To:    entities.QuoteStatusPendingPayment,
		Patch: entities.QuotePatch{HotelID: ptr(env.hotelID)},
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypePreconditionFailed, appErr.Type)
	assert.Equal(t, entities.FieldHotelID, appErr.Field)

	after, err := env.store.Quotes().GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.Quote, after)
}

func TestQuoteService_AdminCannotSettleWithoutPayment(t *testing.T) {
	env := newTestEnv(t, 150)
	pending := env.pendingPaymentQuote(t, false)

	_, err := env.quotes.Transition(context.Background(), admin, pending.ID, TransitionRequest{To: entities.QuoteStatusPaid})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePreconditionFailed))
}

func TestQuoteService_GetPricesFromCapturedRates(t *testing.T) {
	env := newTestEnv(t, 150)
	ctx := context.Background()
	pending := env.pendingPaymentQuote(t, false)

	require.NoError(t, env.store.Hotels().Update(ctx, &entities.HotelAlliance{
		ID: env.hotelID, Name: "Hotel Eurobuilding Express", PricePerNight: 200, MealPrice: 40,
	}))

	view, err := env.quotes.Get(ctx, patient, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4620), view.TotalCost)
	assert.Equal(t, view.TotalCost, view.Breakdown.Total)
	assert.Equal(t, int64(840), view.Breakdown.Hotel)
	require.NotNil(t, view.Hotel)
	assert.Equal(t, "Hotel Eurobuilding Express", view.Hotel.Name)
}

func TestQuoteService_RejectVoidsPendingPayments(t *testing.T) {
	env := newTestEnv(t, 150)
	ctx := context.Background()
	pending := env.pendingPaymentQuote(t, false)

	events, err := env.bus.Subscribe(ctx, providers.GetQuoteChannel(pending.ID))
	require.NoError(t, err)

	payment, _, err := env.payments.Submit(ctx, patient, submission(pending.ID, 4620, "ZL-020"))
	require.NoError(t, err)
	assert.Equal(t, entities.QuoteEventTypePaymentSubmitted, waitFor(t, events).EventType)

	rejected, err := env.quotes.Transition(ctx, admin, pending.ID, TransitionRequest{To: entities.QuoteStatusRejected})
	require.NoError(t, err)
	assert.Equal(t, entities.QuoteStatusRejected, rejected.Status)
	assert.Equal(t, entities.QuoteEventTypeTransitioned, waitFor(t, events).EventType)

	voided := waitFor(t, events)
	assert.Equal(t, entities.QuoteEventTypePaymentRejected, voided.EventType)
	assert.Equal(t, payment.ID, voided.PaymentID)

	stored, err := env.store.Payments().GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentStatusRejected, stored.Status)
	require.NotNil(t, stored.ReviewedBy)
	assert.Equal(t, admin.UserID, *stored.ReviewedBy)
	assert.NotNil(t, stored.ReviewedAt)

	_, err = env.payments.Review(ctx, admin, payment.ID, entities.ReviewApproved)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))
}

func TestQuoteService_ZeroCostQuoteSkipsPayment(t *testing.T) {
	env := newTestEnv(t, 150)
	ctx := context.Background()

	created, err := env.quotes.Create(ctx, entities.Actor{Role: entities.RoleDoctor, UserID: "doctor-user-2"}, entities.NewQuote{
		PatientID:  patient.UserID,
		DoctorID:   env.freeID,
		Status:     entities.QuoteStatusReview,
		QuotePatch: entities.QuotePatch{Diagnosis: ptr("Follow-up consultation")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), created.TotalCost)

	paid, err := env.quotes.Transition(ctx, patient, created.ID, TransitionRequest{
		To: entities.QuoteStatusPaid,
		Patch: entities.QuotePatch{
			PatientName:  ptr("María González"),
			PatientPhone: ptr("+584141234567"),
			PatientEmail: ptr("maria@example.com"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, entities.QuoteStatusPaid, paid.Status)

	payments, err := env.store.Payments().ListByQuote(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestQuoteService_CreateRequiresKnownDoctor(t *testing.T) {
	env := newTestEnv(t, 150)

	_, err := env.quotes.Create(context.Background(), doctor, entities.NewQuote{
		PatientID:  patient.UserID,
		DoctorID:   "missing",
		QuotePatch: entities.QuotePatch{SurgeryCost: ptr(int64(1)), Diagnosis: ptr("x")},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	_, err = env.quotes.Create(context.Background(), doctor, entities.NewQuote{PatientID: patient.UserID})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePreconditionFailed))
}

func TestQuoteService_ConcurrentTransitionsDoNotLoseUpdates(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	pending := env.pendingPaymentQuote(t, true)
	require.Equal(t, int64(4620), pending.TotalCost)

	fees := []int64{10, 20, 30, 40, 50, 60, 70, 80}
	var wg sync.WaitGroup
	for _, fee := range fees {
		wg.Add(1)
		go func(fee int64) {
			defer wg.Done()
			_, err := env.quotes.Transition(ctx, admin, pending.ID, TransitionRequest{
				To:    entities.QuoteStatusPendingPayment,
				Patch: entities.QuotePatch{LogisticsFee: ptr(fee)},
			})
			assert.NoError(t, err)
		}(fee)
	}
	wg.Wait()

	final, err := env.store.Quotes().GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.Version+int64(len(fees)), final.Version)
	assert.Contains(t, fees, final.LogisticsFee)
	assert.Equal(t, 4620+final.LogisticsFee, final.TotalCost)
}

func TestQuoteService_ListIsScopedToCaller(t *testing.T) {
	env := newTestEnv(t, 150)
	ctx := context.Background()
	mine := env.openReviewQuote(t)

	_, err := env.quotes.Create(ctx, doctor, entities.NewQuote{
		PatientID:  "patient-2",
		DoctorID:   "doctor-1",
		QuotePatch: entities.QuotePatch{SurgeryCost: ptr(int64(900)), Diagnosis: ptr("Otoplasty")},
	})
	require.NoError(t, err)

	own, err := env.quotes.List(ctx, patient, repositories.QuoteFilter{PatientID: "patient-2"})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	all, err := env.quotes.List(ctx, admin, repositories.QuoteFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	drafts, err := env.quotes.List(ctx, doctor, repositories.QuoteFilter{Status: entities.QuoteStatusDraft})
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestQuoteService_GetHidesOtherPatientsQuotes(t *testing.T) {
	env := newTestEnv(t, 150)
	created := env.openReviewQuote(t)

	_, err := env.quotes.Get(context.Background(), entities.Actor{Role: entities.RolePatient, UserID: "patient-2"}, created.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))

	view, err := env.quotes.Get(context.Background(), admin, created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []entities.QuoteStatus{entities.QuoteStatusReview, entities.QuoteStatusReady, entities.QuoteStatusRejected}, view.AllowedTransitions)
}
