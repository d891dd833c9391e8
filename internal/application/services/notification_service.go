package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/providers"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	"github.com/tmvsalud/medtour/internal/infrastructure/observability"
)

const notificationTimeout = 10 * time.Second

// NotificationKind selects the patient message for an event
type NotificationKind string

const (
	NotificationQuoteReady      NotificationKind = "quote_ready"
	NotificationQuotePaid       NotificationKind = "quote_paid"
	NotificationQuoteRejected   NotificationKind = "quote_rejected"
	NotificationPaymentRejected NotificationKind = "payment_rejected"
)

var notificationTemplates = map[string]map[NotificationKind]string{
	"es": {
		NotificationQuoteReady:      "Hola %s, su cotización %s está lista. Total: %d %s. Ingrese para elegir su estadía y confirmar.",
		NotificationQuotePaid:       "Hola %s, confirmamos el pago de su cotización %s por %d %s. ¡Le esperamos!",
		NotificationQuoteRejected:   "Hola %s, su cotización %s no pudo ser aprobada (total %d %s). Contáctenos para más información.",
		NotificationPaymentRejected: "Hola %s, no pudimos verificar el pago de su cotización %s (total %d %s). Por favor envíe un nuevo comprobante.",
	},
	"en": {
		NotificationQuoteReady:      "Hi %s, your quote %s is ready. Total: %d %s. Sign in to choose your stay and confirm.",
		NotificationQuotePaid:       "Hi %s, we confirmed the payment for quote %s of %d %s. See you soon!",
		NotificationQuoteRejected:   "Hi %s, your quote %s could not be approved (total %d %s). Contact us for details.",
		NotificationPaymentRejected: "Hi %s, we could not verify the payment for quote %s (total %d %s). Please send a new receipt.",
	},
}

// NotificationOptions configures message rendering
type NotificationOptions struct {
	Language string
	Currency string
}

// NotificationService tells patients about quote milestones over WhatsApp.
// Delivery failures are logged and never reach the workflow.
type NotificationService struct {
	quotes   repositories.QuoteRepository
	eventBus providers.EventBus
	sender   providers.MessageSender
	opts     NotificationOptions
	metrics  *observability.Metrics
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	quotes repositories.QuoteRepository,
	eventBus providers.EventBus,
	sender providers.MessageSender,
	opts NotificationOptions,
	metrics *observability.Metrics,
) *NotificationService {
	if _, ok := notificationTemplates[opts.Language]; !ok {
		opts.Language = "es"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &NotificationService{
		quotes:   quotes,
		eventBus: eventBus,
		sender:   sender,
		opts:     opts,
		metrics:  metrics,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for quote events
func (s *NotificationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelQuoteUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to quote updates: %w", err)
	}

	s.wg.Add(1)
	go s.processEvents(eventChan)
	log.Info().Str("language", s.opts.Language).Msg("notification service started")
	return nil
}

// Stop stops listening and waits for in-flight deliveries
func (s *NotificationService) Stop() {
	s.cancel()
	s.wg.Wait()
	log.Info().Msg("notification service stopped")
}

func (s *NotificationService) processEvents(eventChan <-chan *entities.QuoteEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			s.HandleEvent(event)
		}
	}
}

// HandleEvent sends the message an event calls for, if any
func (s *NotificationService) HandleEvent(event *entities.QuoteEvent) {
	kind, ok := kindFor(event)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
	defer cancel()

	logger := log.With().Str("quote_id", event.QuoteID).Str("event_id", event.ID).Str("kind", string(kind)).Logger()

	quote, err := s.quotes.GetByID(ctx, event.QuoteID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load quote for notification")
		observability.RecordNotification(ctx, s.metrics, string(kind), "error")
		return
	}

	to := quote.ContactNumber()
	if to == "" {
		logger.Debug().Msg("quote has no contact number, skipping notification")
		observability.RecordNotification(ctx, s.metrics, string(kind), "skipped")
		return
	}

	messageID, err := s.sender.SendText(ctx, to, s.Render(kind, quote))
	if err != nil {
		logger.Error().Err(err).Msg("failed to send whatsapp notification")
		observability.RecordNotification(ctx, s.metrics, string(kind), "error")
		return
	}

	logger.Info().Str("message_id", messageID).Msg("whatsapp notification sent")
	observability.RecordNotification(ctx, s.metrics, string(kind), "ok")
}

// Render builds the message text in the configured language
func (s *NotificationService) Render(kind NotificationKind, quote *entities.Quote) string {
	name := quote.PatientName
	if name == "" {
		name = map[string]string{"es": "paciente", "en": "patient"}[s.opts.Language]
	}
	return fmt.Sprintf(notificationTemplates[s.opts.Language][kind], name, shortID(quote.ID), quote.TotalCost, s.opts.Currency)
}

func kindFor(event *entities.QuoteEvent) (NotificationKind, bool) {
	if event.EventType == entities.QuoteEventTypePaymentRejected {
		return NotificationPaymentRejected, true
	}
	if event.EventType != entities.QuoteEventTypeTransitioned && event.EventType != entities.QuoteEventTypePaymentApproved {
		return "", false
	}
	if event.FromStatus == event.ToStatus {
		return "", false
	}

	switch event.ToStatus {
	case entities.QuoteStatusReady:
		return NotificationQuoteReady, true
	case entities.QuoteStatusPaid:
		return NotificationQuotePaid, true
	case entities.QuoteStatusRejected:
		return NotificationQuoteRejected, true
	}
	return "", false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
