package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/providers"
)

func storedQuote(t *testing.T, env *testEnv, status entities.QuoteStatus) *entities.Quote {
	t.Helper()
	quote := &entities.Quote{
		ID:             "quote-0001-aaaa",
		PatientID:      patient.UserID,
		DoctorID:       doctor.UserID,
		SurgeryCost:    3500,
		PatientName:    "María González",
		PatientPhone:   "+584141234567",
		WhatsAppNumber: "+584241112233",
		TotalCost:      4620,
		Status:         status,
		Version:        1,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, env.store.Quotes().Create(context.Background(), quote))
	return quote
}

func TestNotificationService_HandleEvent(t *testing.T) {
	t.Run("ready quote is announced in spanish", func(t *testing.T) {
		env := newTestEnv(t, 150)
		quote := storedQuote(t, env, entities.QuoteStatusReady)
		sender := new(MockMessageSender)
		sender.On("SendText", mock.Anything, "+584241112233",
			"Hola María González, su cotización quote-00 está lista. Total: 4620 USD. Ingrese para elegir su estadía y confirmar.").
			Return("wamid.1", nil)

		svc := NewNotificationService(env.store.Quotes(), env.bus, sender, NotificationOptions{Currency: "USD"}, nil)
		svc.HandleEvent(entities.NewQuoteEvent(quote, entities.QuoteEventTypeTransitioned, entities.QuoteStatusReview, admin))

		sender.AssertExpectations(t)
	})

	t.Run("events without a message are ignored", func(t *testing.T) {
		env := newTestEnv(t, 150)
		quote := storedQuote(t, env, entities.QuoteStatusReview)
		sender := new(MockMessageSender)

		svc := NewNotificationService(env.store.Quotes(), env.bus, sender, NotificationOptions{}, nil)
		svc.HandleEvent(entities.NewQuoteEvent(quote, entities.QuoteEventTypeCreated, "", doctor))
		svc.HandleEvent(entities.NewQuoteEvent(quote, entities.QuoteEventTypeTransitioned, entities.QuoteStatusReview, doctor))
		svc.HandleEvent(entities.NewQuoteEvent(quote, entities.QuoteEventTypePaymentSubmitted, entities.QuoteStatusReview, patient))

		sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("delivery failure is swallowed", func(t *testing.T) {
		env := newTestEnv(t, 150)
		quote := storedQuote(t, env, entities.QuoteStatusPendingPayment)
		sender := new(MockMessageSender)
		sender.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("whatsapp api error 429"))

		svc := NewNotificationService(env.store.Quotes(), env.bus, sender, NotificationOptions{}, nil)
		assert.NotPanics(t, func() {
			svc.HandleEvent(entities.NewQuoteEvent(quote, entities.QuoteEventTypePaymentRejected, quote.Status, admin))
		})
		sender.AssertNumberOfCalls(t, "SendText", 1)
	})
}

func TestNotificationService_RenderEnglish(t *testing.T) {
	env := newTestEnv(t, 150)
	svc := NewNotificationService(env.store.Quotes(), env.bus, new(MockMessageSender), NotificationOptions{Language: "en", Currency: "USD"}, nil)

	msg := svc.Render(NotificationQuotePaid, &entities.Quote{ID: "abcdef123456", TotalCost: 4620})
	assert.Equal(t, "Hi patient, we confirmed the payment for quote abcdef12 of 4620 USD. See you soon!", msg)
}

func TestNotificationService_UnknownLanguageFallsBackToSpanish(t *testing.T) {
	env := newTestEnv(t, 150)
	svc := NewNotificationService(env.store.Quotes(), env.bus, new(MockMessageSender), NotificationOptions{Language: "fr"}, nil)

	msg := svc.Render(NotificationQuoteRejected, &entities.Quote{ID: "q1", PatientName: "Ana"})
	assert.True(t, strings.HasPrefix(msg, "Hola Ana"))
}

func TestNotificationService_StartStop(t *testing.T) {
	env := newTestEnv(t, 150)
	quote := storedQuote(t, env, entities.QuoteStatusPaid)

	sent := make(chan string, 1)
	sender := new(MockMessageSender)
	sender.On("SendText", mock.Anything, "+584241112233", mock.Anything).
		Run(func(args mock.Arguments) { sent <- args.String(2) }).
		Return("wamid.2", nil)

	svc := NewNotificationService(env.store.Quotes(), env.bus, sender, NotificationOptions{Currency: "USD"}, nil)
	require.NoError(t, svc.Start())

	event := entities.NewQuoteEvent(quote, entities.QuoteEventTypePaymentApproved, entities.QuoteStatusPendingPayment, admin)
	require.NoError(t, env.bus.Publish(context.Background(), providers.EventChannelQuoteUpdates, event))

	select {
	case body := <-sent:
		assert.Contains(t, body, "confirmamos el pago")
	case <-time.After(time.Second):
		t.Fatal("notification was not sent")
	}

	svc.Stop()
}
