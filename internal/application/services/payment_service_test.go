package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/providers"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

func submission(quoteID string, amount int64, ref string) entities.PaymentSubmission {
	return entities.PaymentSubmission{
		QuoteID:         quoteID,
		Amount:          amount,
		ReferenceNumber: ref,
		BankName:        "Banesco",
		Method:          "pago_movil",
	}
}

func TestPaymentService_SubmitAndApprove(t *testing.T) {
	env := newTestEnv(t, 150)
	ctx := context.Background()
	pending := env.pendingPaymentQuote(t, false)

	events, err := env.bus.Subscribe(ctx, providers.GetQuoteChannel(pending.ID))
	require.NoError(t, err)

	payment, replayed, err := env.payments.Submit(ctx, patient, submission(pending.ID, 4620, " ZL-001 "))
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, entities.PaymentStatusPending, payment.Status)
	assert.Equal(t, entities.PaymentMethodPagoMovil, payment.Method)
	assert.Equal(t, "ZL-001", payment.ReferenceNumber)
	assert.Equal(t, entities.QuoteEventTypePaymentSubmitted, waitFor(t, events).EventType)

	res, err := env.payments.Review(ctx, admin, payment.ID, entities.ReviewApproved)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentStatusApproved, res.Payment.Status)
	require.NotNil(t, res.Payment.ReviewedAt)
	assert.Equal(t, entities.QuoteStatusPaid, res.Quote.Status)

	event := waitFor(t, events)
	assert.Equal(t, entities.QuoteEventTypePaymentApproved, event.EventType)
	assert.Equal(t, payment.ID, event.PaymentID)

	stored, err := env.store.Quotes().GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.QuoteStatusPaid, stored.Status)
}

func TestPaymentService_LateLogisticsEditCausesAmountMismatch(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	pending := env.pendingPaymentQuote(t, true)
	require.Equal(t, int64(4620), pending.TotalCost)

	payment, _, err := env.payments.Submit(ctx, patient, submission(pending.ID, 4620, "ZL-002"))
	require.NoError(t, err)

	edited, err := env.quotes.Transition(ctx, admin, pending.ID, TransitionRequest{
		To:    entities.QuoteStatusPendingPayment,
		Patch: entities.QuotePatch{LogisticsFee: ptr(int64(80))},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4700), edited.TotalCost)

	_, err = env.payments.Review(ctx, admin, payment.ID, entities.ReviewApproved)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAmountMismatch))

	quote, err := env.store.Quotes().GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.QuoteStatusPendingPayment, quote.Status)
	assert.Equal(t, edited.Version, quote.Version)

	stored, err := env.store.Payments().GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentStatusPending, stored.Status)
	assert.Nil(t, stored.ReviewedAt)
}

func TestPaymentService_ApproveAfterHotelPriceChange(t *testing.T) {
	env := newTestEnv(t, 150)
	ctx := context.Background()
	pending := env.pendingPaymentQuote(t, false)
	require.Equal(t, int64(4620), pending.TotalCost)

	payment, _, err := env.payments.Submit(ctx, patient, submission(pending.ID, 4620, "ZL-010"))
	require.NoError(t, err)

	require.NoError(t, env.store.Hotels().Update(ctx, &entities.HotelAlliance{
		ID: env.hotelID, Name: "Hotel Eurobuilding Express", PricePerNight: 200, MealPrice: 40,
	}))

	res, err := env.payments.Review(ctx, admin, payment.ID, entities.ReviewApproved)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentStatusApproved, res.Payment.Status)
	assert.Equal(t, entities.QuoteStatusPaid, res.Quote.Status)
	assert.Equal(t, int64(4620), res.Quote.TotalCost)
	assert.Equal(t, int64(120), res.Quote.HotelRate)
}

func TestPaymentService_RejectKeepsQuotePending(t *testing.T) {
	env := newTestEnv(t, 150)
	ctx := context.Background()
	pending := env.pendingPaymentQuote(t, false)

	payment, _, err := env.payments.Submit(ctx, patient, submission(pending.ID, 4620, "ZL-003"))
	require.NoError(t, err)

	res, err := env.payments.Review(ctx, admin, payment.ID, entities.ReviewRejected)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentStatusRejected, res.Payment.Status)
	assert.NotNil(t, res.Payment.ReviewedAt)
	assert.Equal(t, entities.QuoteStatusPendingPayment, res.Quote.Status)

	_, err = env.payments.Review(ctx, admin, payment.ID, entities.ReviewApproved)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))

	again, _, err := env.payments.Submit(ctx, patient, submission(pending.ID, 4620, "ZL-004"))
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentStatusPending, again.Status)
}

func TestPaymentService_SubmitIsIdempotentPerReference(t *testing.T) {
	env := newTestEnv(t, 150)
	ctx := context.Background()
	pending := env.pendingPaymentQuote(t, false)

	first, _, err := env.payments.Submit(ctx, patient, submission(pending.ID, 4620, "ZL-005"))
	require.NoError(t, err)

	second, replayed, err := env.payments.Submit(ctx, patient, submission(pending.ID, 4620, "ZL-005"))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)

	_, _, err = env.payments.Submit(ctx, patient, submission(pending.ID, 4000, "ZL-005"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	all, err := env.payments.ListForQuote(ctx, patient, pending.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPaymentService_SubmitValidation(t *testing.T) {
	env := newTestEnv(t, 150)
	ctx := context.Background()
	review := env.openReviewQuote(t)

	tests := []struct {
		name    string
		actor   entities.Actor
		sub     entities.PaymentSubmission
		errType apperrors.ErrorType
	}{
		{"unknown quote", patient, submission("missing", 10, "R"), apperrors.ErrorTypeNotFound},
		{"quote not awaiting payment", patient, submission(review.ID, 10, "R"), apperrors.ErrorTypeInvalidState},
		{"negative amount", patient, submission(review.ID, -1, "R"), apperrors.ErrorTypeInvalidInput},
		{"missing reference", patient, submission(review.ID, 10, "  "), apperrors.ErrorTypePreconditionFailed},
		{"doctor cannot pay", doctor, submission(review.ID, 10, "R"), apperrors.ErrorTypeUnauthorized},
		{"other patient", entities.Actor{Role: entities.RolePatient, UserID: "patient-2"}, submission(review.ID, 10, "R"), apperrors.ErrorTypeUnauthorized},
		{"unknown method", patient, entities.PaymentSubmission{QuoteID: review.ID, Amount: 10, ReferenceNumber: "R", Method: "cash"}, apperrors.ErrorTypeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.payments.Submit(ctx, tt.actor, tt.sub)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err), "got %v", err)
		})
	}
}

func TestPaymentService_ReviewRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, 150)
	ctx := context.Background()
	pending := env.pendingPaymentQuote(t, false)
	payment, _, err := env.payments.Submit(ctx, patient, submission(pending.ID, 4620, "ZL-006"))
	require.NoError(t, err)

	_, err = env.payments.Review(ctx, patient, payment.ID, entities.ReviewApproved)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))

	_, err = env.payments.Review(ctx, admin, payment.ID, "maybe")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidInput))

	_, err = env.payments.Review(ctx, admin, "missing", entities.ReviewApproved)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	_, err = env.payments.List(ctx, patient, repositories.PaymentFilter{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))

	pendingOnly, err := env.payments.List(ctx, admin, repositories.PaymentFilter{Status: entities.PaymentStatusPending})
	require.NoError(t, err)
	assert.Len(t, pendingOnly, 1)
}
