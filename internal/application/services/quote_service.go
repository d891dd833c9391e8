package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/pricing"
	"github.com/tmvsalud/medtour/internal/domain/providers"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	"github.com/tmvsalud/medtour/internal/domain/workflow"
	"github.com/tmvsalud/medtour/internal/infrastructure/observability"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// QuoteView is a quote with its derived pricing and the moves open to the caller
type QuoteView struct {
	*entities.Quote
	Breakdown          pricing.Breakdown      `json:"breakdown"`
	Hotel              *entities.HotelSummary `json:"hotel,omitempty"`
	AllowedTransitions []entities.QuoteStatus `json:"allowed_transitions"`
}

// TransitionRequest is the public transition payload. Payment evidence is
// never accepted here; only payment review can settle a quote.
type TransitionRequest struct {
	To    entities.QuoteStatus
	Patch entities.QuotePatch
}

// QuoteService is the only writer of quotes. Every mutation runs the state
// machine inside the quote's exclusive section and persists with a version check.
type QuoteService struct {
	quotes   repositories.QuoteRepository
	payments repositories.PaymentRepository
	doctors  repositories.DoctorRepository
	tx       repositories.TransactionManager
	machine  *workflow.Machine
	locker   providers.Locker
	events   providers.EventBus
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewQuoteService creates a new quote service. events and metrics may be nil.
func NewQuoteService(
	quotes repositories.QuoteRepository,
	payments repositories.PaymentRepository,
	doctors repositories.DoctorRepository,
	tx repositories.TransactionManager,
	machine *workflow.Machine,
	locker providers.Locker,
	events providers.EventBus,
	metrics *observability.Metrics,
) *QuoteService {
	return &QuoteService{
		quotes:   quotes,
		payments: payments,
		doctors:  doctors,
		tx:       tx,
		machine:  machine,
		locker:   locker,
		events:   events,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Create opens a quote on behalf of a doctor
func (s *QuoteService) Create(ctx context.Context, actor entities.Actor, req entities.NewQuote) (*QuoteView, error) {
	if strings.TrimSpace(req.DoctorID) == "" {
		return nil, apperrors.NewPreconditionFailedError(entities.FieldDoctorID, "doctor_id is required")
	}

	doctor, err := s.doctors.GetByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	res, err := s.machine.Open(ctx, actor, req, doctor)
	observability.RecordTransition(ctx, s.metrics, "", string(lo.CoalesceOrEmpty(req.Status, entities.QuoteStatusDraft)), string(actor.Role), outcome(err))
	if err != nil {
		return nil, err
	}

	res.Quote.ID = uuid.NewString()
	if err := s.quotes.Create(ctx, res.Quote); err != nil {
		return nil, err
	}

	publishQuoteEvent(ctx, s.events, entities.NewQuoteEvent(res.Quote, entities.QuoteEventTypeCreated, "", actor))
	return s.view(res.Quote, res.Breakdown, res.Hotel, actor.Role), nil
}

// Get returns a quote visible to actor
func (s *QuoteService) Get(ctx context.Context, actor entities.Actor, id string) (*QuoteView, error) {
	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(quote, actor); err != nil {
		return nil, err
	}

	breakdown, hotel, err := s.machine.Price(ctx, quote)
	if err != nil {
		return nil, err
	}
	return s.view(quote, breakdown, hotel, actor.Role), nil
}

// List returns quotes newest first. Patients and doctors only ever see their own.
func (s *QuoteService) List(ctx context.Context, actor entities.Actor, filter repositories.QuoteFilter) ([]*entities.Quote, error) {
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)

	switch actor.Role {
	case entities.RolePatient:
		filter.PatientID = actor.UserID
	case entities.RoleDoctor:
		filter.DoctorID = actor.UserID
	case entities.RoleAdmin:
	default:
		return nil, apperrors.NewUnauthorizedError("unknown role")
	}

	return s.quotes.List(ctx, filter)
}

// Transition moves a quote to req.To, merging the payload and recomputing the total
func (s *QuoteService) Transition(ctx context.Context, actor entities.Actor, id string, req TransitionRequest) (*QuoteView, error) {
	ctx = observability.WithQuote(ctx, id)
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(fmt.Sprintf("failed to lock quote %s", id), err)
	}
	defer unlock()

	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.machine.Apply(ctx, quote, workflow.Request{
		To:    req.To,
		Actor: actor,
		Patch: req.Patch,
	})
	var voided []*entities.Payment
	if err == nil {
		voided, err = s.persist(ctx, actor, res.Quote, quote.Version)
	}
	observability.RecordTransition(ctx, s.metrics, string(quote.Status), string(req.To), string(actor.Role), outcome(err))
	if err != nil {
		return nil, err
	}

	publishQuoteEvent(ctx, s.events, entities.NewQuoteEvent(res.Quote, entities.QuoteEventTypeTransitioned, res.From, actor))
	for _, p := range voided {
		publishQuoteEvent(ctx, s.events,
			entities.NewQuoteEvent(res.Quote, entities.QuoteEventTypePaymentRejected, res.Quote.Status, actor).WithPayment(p.ID))
	}
	return s.view(res.Quote, res.Breakdown, res.Hotel, actor.Role), nil
}

// persist writes a transitioned quote. A rejected quote takes its pending
// payments down with it in the same unit of work and returns them.
func (s *QuoteService) persist(ctx context.Context, actor entities.Actor, quote *entities.Quote, expectedVersion int64) ([]*entities.Payment, error) {
	if quote.Status != entities.QuoteStatusRejected {
		return nil, s.quotes.Update(ctx, quote, expectedVersion)
	}

	var voided []*entities.Payment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.quotes.Update(ctx, quote, expectedVersion); err != nil {
			return err
		}

		payments, err := s.payments.ListByQuote(ctx, quote.ID)
		if err != nil {
			return err
		}

		reviewedAt := s.now().UTC()
		reviewer := actor.UserID
		for _, p := range lo.Filter(payments, func(p *entities.Payment, _ int) bool {
			return p.Status == entities.PaymentStatusPending
		}) {
			p.Status = entities.PaymentStatusRejected
			p.ReviewedBy = &reviewer
			p.ReviewedAt = &reviewedAt
			if err := s.payments.UpdateReview(ctx, p); err != nil {
				return err
			}
			voided = append(voided, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return voided, nil
}

func (s *QuoteService) view(q *entities.Quote, b pricing.Breakdown, hotel *entities.HotelAlliance, role entities.Role) *QuoteView {
	v := &QuoteView{
		Quote:              q,
		Breakdown:          b,
		AllowedTransitions: workflow.AllowedTargets(q.Status, role),
	}
	if hotel != nil {
		v.Hotel = hotel.Summary()
	}
	if v.AllowedTransitions == nil {
		v.AllowedTransitions = []entities.QuoteStatus{}
	}
	return v
}

func checkVisible(q *entities.Quote, actor entities.Actor) error {
	switch actor.Role {
	case entities.RoleAdmin:
		return nil
	case entities.RolePatient:
		if q.PatientID == actor.UserID {
			return nil
		}
	case entities.RoleDoctor:
		if q.DoctorID == actor.UserID {
			return nil
		}
	}
	return apperrors.NewUnauthorizedError("quote belongs to another user")
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	return lo.Min([]int{limit, maxPageSize}), lo.Max([]int{offset, 0})
}
