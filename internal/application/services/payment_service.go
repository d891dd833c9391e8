package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/providers"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	"github.com/tmvsalud/medtour/internal/domain/workflow"
	"github.com/tmvsalud/medtour/internal/infrastructure/observability"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

// ReviewResult is the outcome of a payment review
type ReviewResult struct {
	Payment *entities.Payment `json:"payment"`
	Quote   *entities.Quote   `json:"quote"`
}

// PaymentService records manual transfer proofs and lets admins settle quotes with them
type PaymentService struct {
	payments repositories.PaymentRepository
	quotes   repositories.QuoteRepository
	tx       repositories.TransactionManager
	machine  *workflow.Machine
	locker   providers.Locker
	events   providers.EventBus
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewPaymentService creates a new payment service. events and metrics may be nil.
func NewPaymentService(
	payments repositories.PaymentRepository,
	quotes repositories.QuoteRepository,
	tx repositories.TransactionManager,
	machine *workflow.Machine,
	locker providers.Locker,
	events providers.EventBus,
	metrics *observability.Metrics,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		quotes:   quotes,
		tx:       tx,
		machine:  machine,
		locker:   locker,
		events:   events,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Submit records a pending payment against a quote awaiting payment.
// Resubmitting the same reference with the same amount returns the stored
// payment and replayed=true.
func (s *PaymentService) Submit(ctx context.Context, actor entities.Actor, sub entities.PaymentSubmission) (payment *entities.Payment, replayed bool, err error) {
	if actor.Role != entities.RolePatient && !actor.IsAdmin() {
		return nil, false, apperrors.NewUnauthorizedError("only patients and admins may submit payments")
	}
	if strings.TrimSpace(sub.QuoteID) == "" {
		return nil, false, apperrors.NewPreconditionFailedError("quote_id", "quote_id is required")
	}
	if sub.Amount < 0 {
		return nil, false, apperrors.NewInvalidInputError("amount", "amount must not be negative")
	}
	reference := strings.TrimSpace(sub.ReferenceNumber)
	if reference == "" {
		return nil, false, apperrors.NewPreconditionFailedError("reference_number", "reference_number is required")
	}
	method, err := entities.ParsePaymentMethod(sub.Method)
	if err != nil {
		return nil, false, apperrors.NewInvalidInputError("method", err.Error())
	}

	ctx = observability.WithQuote(ctx, sub.QuoteID)
	unlock, err := s.locker.Lock(ctx, sub.QuoteID)
	if err != nil {
		return nil, false, apperrors.NewStorageUnavailableError(fmt.Sprintf("failed to lock quote %s", sub.QuoteID), err)
	}
	defer unlock()

	quote, err := s.quotes.GetByID(ctx, sub.QuoteID)
	if err != nil {
		return nil, false, err
	}
	if actor.Role == entities.RolePatient && quote.PatientID != actor.UserID {
		return nil, false, apperrors.NewUnauthorizedError("patients may only pay their own quotes")
	}

	existing, err := s.payments.GetByReference(ctx, quote.ID, reference)
	switch {
	case err == nil:
		if existing.Amount != sub.Amount {
			return nil, false, apperrors.NewConflictError(
				fmt.Sprintf("reference %s was already submitted with amount %d", reference, existing.Amount))
		}
		return existing, true, nil
	case !apperrors.IsType(err, apperrors.ErrorTypeNotFound):
		return nil, false, err
	}

	if quote.Status != entities.QuoteStatusPendingPayment {
		return nil, false, apperrors.NewInvalidStateError(
			fmt.Sprintf("quote is %s; payments are accepted only while pending_payment", quote.Status))
	}

	payment = &entities.Payment{
		ID:              uuid.NewString(),
		QuoteID:         quote.ID,
		Amount:          sub.Amount,
		ReferenceNumber: reference,
		BankName:        strings.TrimSpace(sub.BankName),
		ReceiptURL:      strings.TrimSpace(sub.ReceiptURL),
		Method:          method,
		Status:          entities.PaymentStatusPending,
		SubmittedBy:     actor.UserID,
		SubmittedAt:     s.now().UTC(),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, false, err
	}

	publishQuoteEvent(ctx, s.events,
		entities.NewQuoteEvent(quote, entities.QuoteEventTypePaymentSubmitted, quote.Status, actor).WithPayment(payment.ID))
	return payment, false, nil
}

// Review approves or rejects a pending payment. Approval settles the quote only
// when the amount equals the quote total; otherwise nothing changes.
func (s *PaymentService) Review(ctx context.Context, actor entities.Actor, paymentID string, decision entities.ReviewDecision) (res *ReviewResult, err error) {
	defer func() {
		observability.RecordPaymentReview(ctx, s.metrics, string(decision), outcome(err))
	}()

	if !actor.IsAdmin() {
		return nil, apperrors.NewUnauthorizedError("only admins may review payments")
	}
	if decision != entities.ReviewApproved && decision != entities.ReviewRejected {
		return nil, apperrors.NewInvalidInputError("decision", fmt.Sprintf("unknown decision %q", decision))
	}

	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != entities.PaymentStatusPending {
		return nil, apperrors.NewInvalidStateError(fmt.Sprintf("payment %s was already %s", payment.ID, payment.Status))
	}

	ctx = observability.WithFields(ctx,
		observability.FieldQuoteID, payment.QuoteID,
		observability.FieldPaymentID, payment.ID)
	unlock, err := s.locker.Lock(ctx, payment.QuoteID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(fmt.Sprintf("failed to lock quote %s", payment.QuoteID), err)
	}
	defer unlock()

	// a quote rejection may have voided the payment while we waited
	if payment, err = s.payments.GetByID(ctx, paymentID); err != nil {
		return nil, err
	}
	if payment.Status != entities.PaymentStatusPending {
		return nil, apperrors.NewInvalidStateError(fmt.Sprintf("payment %s was already %s", payment.ID, payment.Status))
	}

	reviewedAt := s.now().UTC()
	reviewer := actor.UserID

	if decision == entities.ReviewRejected {
		payment.Status = entities.PaymentStatusRejected
		payment.ReviewedBy = &reviewer
		payment.ReviewedAt = &reviewedAt
		if err := s.payments.UpdateReview(ctx, payment); err != nil {
			return nil, err
		}
		quote, err := s.quotes.GetByID(ctx, payment.QuoteID)
		if err != nil {
			return nil, err
		}
		publishQuoteEvent(ctx, s.events,
			entities.NewQuoteEvent(quote, entities.QuoteEventTypePaymentRejected, quote.Status, actor).WithPayment(payment.ID))
		return &ReviewResult{Payment: payment, Quote: quote}, nil
	}

	var settled *workflow.Result
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		quote, err := s.quotes.GetByID(ctx, payment.QuoteID)
		if err != nil {
			return err
		}

		settled, err = s.machine.Apply(ctx, quote, workflow.Request{
			To:    entities.QuoteStatusPaid,
			Actor: actor,
			Evidence: &workflow.PaymentEvidence{
				PaymentID: payment.ID,
				Amount:    payment.Amount,
				Status:    entities.PaymentStatusApproved,
			},
		})
		if err != nil {
			return err
		}

		approved := *payment
		approved.Status = entities.PaymentStatusApproved
		approved.ReviewedBy = &reviewer
		approved.ReviewedAt = &reviewedAt
		if err := s.payments.UpdateReview(ctx, &approved); err != nil {
			return err
		}
		if err := s.quotes.Update(ctx, settled.Quote, quote.Version); err != nil {
			return err
		}
		*payment = approved
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishQuoteEvent(ctx, s.events,
		entities.NewQuoteEvent(settled.Quote, entities.QuoteEventTypePaymentApproved, settled.From, actor).WithPayment(payment.ID))
	return &ReviewResult{Payment: payment, Quote: settled.Quote}, nil
}

// Get returns a payment visible to actor
func (s *PaymentService) Get(ctx context.Context, actor entities.Actor, id string) (*entities.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return payment, nil
	}
	quote, err := s.quotes.GetByID(ctx, payment.QuoteID)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(quote, actor); err != nil {
		return nil, err
	}
	return payment, nil
}

// List returns payments for admin review, newest first
func (s *PaymentService) List(ctx context.Context, actor entities.Actor, filter repositories.PaymentFilter) ([]*entities.Payment, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewUnauthorizedError("only admins may list payments")
	}
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	return s.payments.List(ctx, filter)
}

// ListForQuote returns every payment submitted against a quote
func (s *PaymentService) ListForQuote(ctx context.Context, actor entities.Actor, quoteID string) ([]*entities.Payment, error) {
	quote, err := s.quotes.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(quote, actor); err != nil {
		return nil, err
	}
	return s.payments.ListByQuote(ctx, quoteID)
}
