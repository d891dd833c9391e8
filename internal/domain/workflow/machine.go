// Package workflow is the quote lifecycle state machine. Every change to a
// quote, including its creation, goes through Machine so that status, field
// ownership and the derived total stay consistent.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/pricing"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

// HotelLookup resolves hotel rates
type HotelLookup interface {
	GetByID(ctx context.Context, id string) (*entities.HotelAlliance, error)
}

// PaymentEvidence is supplied by payment intake when an approved payment settles a quote.
// It cannot be provided through the public transition API.
type PaymentEvidence struct {
	PaymentID string
	Amount    int64
	Status    entities.PaymentStatus
}

// Request asks the machine to move a quote to a target status
type Request struct {
	To       entities.QuoteStatus
	Actor    entities.Actor
	Patch    entities.QuotePatch
	Evidence *PaymentEvidence
}

// Result is the quote after a successful transition
type Result struct {
	Quote     *entities.Quote
	From      entities.QuoteStatus
	Hotel     *entities.HotelAlliance
	Breakdown pricing.Breakdown
}

// Options configures a Machine
type Options struct {
	DefaultLogisticsFee int64
	Now                 func() time.Time
}

// Machine applies lifecycle rules to quotes. It performs no writes; callers
// persist Result.Quote.
type Machine struct {
	hotels HotelLookup
	opts   Options
}

// NewMachine creates a state machine
func NewMachine(hotels HotelLookup, opts Options) *Machine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Machine{hotels: hotels, opts: opts}
}

type transition struct {
	quote    *entities.Quote
	hotel    *entities.HotelAlliance
	total    pricing.Breakdown
	stored   int64 // total_cost before the transition
	evidence *PaymentEvidence
}

// Open validates a doctor intake request and returns the new quote. The
// caller assigns the id. doctor is the resolved profile of req.DoctorID.
func (m *Machine) Open(ctx context.Context, actor entities.Actor, req entities.NewQuote, doctor *entities.DoctorProfile) (*Result, error) {
	to := req.Status
	if to == "" {
		to = entities.QuoteStatusDraft
	}
	r, ok := rules[ruleKey{none, to, actor.Role}]
	if !ok {
		return nil, apperrors.NewInvalidStateError(fmt.Sprintf("a %s cannot open a quote in status %s", actor.Role, to))
	}
	if doctor == nil {
		return nil, apperrors.NewNotFoundError("doctor not found")
	}
	if actor.UserID != doctor.UserID && actor.UserID != doctor.ID {
		return nil, apperrors.NewUnauthorizedError("doctors may only open their own quotes")
	}
	if err := checkFields(req.QuotePatch, r.fields, none, to, actor.Role); err != nil {
		return nil, err
	}
	if err := checkNonNegative(req.QuotePatch); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.PatientID) == "" {
		return nil, apperrors.NewPreconditionFailedError(entities.FieldPatientID, "patient_id is required")
	}
	if req.Diagnosis == nil || strings.TrimSpace(*req.Diagnosis) == "" {
		return nil, apperrors.NewPreconditionFailedError(entities.FieldDiagnosis, "diagnosis is required")
	}

	now := m.opts.Now().UTC()
	q := &entities.Quote{
		PatientID:    req.PatientID,
		DoctorID:     doctor.UserID,
		LogisticsFee: m.opts.DefaultLogisticsFee,
		Status:       to,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	switch {
	case req.SurgeryCost != nil:
		q.SurgeryCost = *req.SurgeryCost
	case doctor.IsFreeConsultation:
		q.SurgeryCost = 0
	default:
		return nil, apperrors.NewPreconditionFailedError(entities.FieldSurgeryCost, "surgery_cost is required")
	}

	if err := mergePatch(q, req.QuotePatch); err != nil {
		return nil, err
	}

	b, err := pricing.Calculate(pricing.InputsFor(q))
	if err != nil {
		return nil, err
	}
	q.TotalCost = b.Total

	return &Result{Quote: q, From: none, Breakdown: b}, nil
}

// Apply validates req against the quote's current status and returns the
// updated copy. The input quote is never modified.
func (m *Machine) Apply(ctx context.Context, quote *entities.Quote, req Request) (*Result, error) {
	from := quote.Status
	if from.IsTerminal() {
		return nil, apperrors.NewInvalidStateError(fmt.Sprintf("quote is %s and can no longer change", from))
	}

	r, ok := rules[ruleKey{from, req.To, req.Actor.Role}]
	if !ok {
		return nil, apperrors.NewInvalidStateError(
			fmt.Sprintf("transition from %s to %s is not allowed for %s", from, req.To, req.Actor.Role),
		)
	}

	if err := checkOwnership(quote, req.Actor); err != nil {
		return nil, err
	}
	if err := checkFields(req.Patch, r.fields, from, req.To, req.Actor.Role); err != nil {
		return nil, err
	}
	if err := checkNonNegative(req.Patch); err != nil {
		return nil, err
	}

	next := quote.Clone()
	if err := mergePatch(next, req.Patch); err != nil {
		return nil, err
	}

	t := &transition{quote: next, stored: quote.TotalCost, evidence: req.Evidence}

	// Only edges that may pick a hotel refresh the captured rates; the rest
	// price from what the patient last saw.
	var hotel *entities.HotelAlliance
	var err error
	if r.selectsHotel() {
		if hotel, err = m.resolveHotel(ctx, next.HotelID); err != nil {
			return nil, err
		}
		captureRates(next, hotel)
	} else if hotel, err = m.lookupHotel(ctx, next.HotelID); err != nil {
		return nil, err
	}
	t.hotel = hotel

	if t.total, err = pricing.Calculate(pricing.InputsFor(next)); err != nil {
		return nil, err
	}
	next.TotalCost = t.total.Total

	if r.check != nil {
		if err := r.check(t); err != nil {
			return nil, err
		}
	}

	next.Status = req.To
	if req.To == entities.QuoteStatusPendingPayment && req.Actor.Role == entities.RolePatient && next.TotalCost == 0 {
		next.Status = entities.QuoteStatusPaid
	}
	next.UpdatedAt = m.opts.Now().UTC()

	return &Result{Quote: next, From: from, Hotel: hotel, Breakdown: t.total}, nil
}

// Price recomputes the breakdown of a stored quote from its captured rates.
// The hotel is returned for display and is nil if it left the catalog.
func (m *Machine) Price(ctx context.Context, quote *entities.Quote) (pricing.Breakdown, *entities.HotelAlliance, error) {
	hotel, err := m.lookupHotel(ctx, quote.HotelID)
	if err != nil {
		return pricing.Breakdown{}, nil, err
	}
	b, err := pricing.Calculate(pricing.InputsFor(quote))
	return b, hotel, err
}

// lookupHotel is resolveHotel without the existence requirement
func (m *Machine) lookupHotel(ctx context.Context, id *string) (*entities.HotelAlliance, error) {
	hotel, err := m.resolveHotel(ctx, id)
	if apperrors.IsType(err, apperrors.ErrorTypePreconditionFailed) {
		return nil, nil
	}
	return hotel, err
}

// captureRates copies the selected hotel's current rates onto q
func captureRates(q *entities.Quote, hotel *entities.HotelAlliance) {
	q.HotelRate, q.MealRate = 0, 0
	if hotel != nil {
		q.HotelRate = hotel.PricePerNight
		q.MealRate = hotel.MealPrice
	}
}

func (m *Machine) resolveHotel(ctx context.Context, id *string) (*entities.HotelAlliance, error) {
	if id == nil || *id == "" {
		return nil, nil
	}
	hotel, err := m.hotels.GetByID(ctx, *id)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewPreconditionFailedError(entities.FieldHotelID, fmt.Sprintf("hotel %s does not exist", *id))
		}
		return nil, err
	}
	return hotel, nil
}

func checkOwnership(quote *entities.Quote, actor entities.Actor) error {
	switch actor.Role {
	case entities.RolePatient:
		if actor.UserID != quote.PatientID {
			return apperrors.NewUnauthorizedError("patients may only act on their own quotes")
		}
	case entities.RoleDoctor:
		if actor.UserID != quote.DoctorID {
			return apperrors.NewUnauthorizedError("doctors may only act on their own quotes")
		}
	}
	return nil
}

func checkFields(patch entities.QuotePatch, legal []string, from, to entities.QuoteStatus, role entities.Role) error {
	for _, field := range patch.SetFields() {
		if !lo.Contains(legal, field) {
			fromName := string(from)
			if from == none {
				fromName = "new"
			}
			return apperrors.NewPreconditionFailedError(field,
				fmt.Sprintf("%s cannot set %s when moving a quote from %s to %s", role, field, fromName, to))
		}
	}
	return nil
}

func checkNonNegative(patch entities.QuotePatch) error {
	for _, f := range []struct {
		name  string
		value *int64
	}{
		{entities.FieldSurgeryCost, patch.SurgeryCost},
		{entities.FieldLogisticsFee, patch.LogisticsFee},
		{entities.FieldStayDays, patch.StayDays},
	} {
		if f.value != nil && *f.value < 0 {
			return apperrors.NewInvalidInputError(f.name, f.name+" must not be negative")
		}
	}
	return nil
}

// mergePatch copies present patch fields onto q. Contact fields are captured once.
func mergePatch(q *entities.Quote, p entities.QuotePatch) error {
	if p.SurgeryCost != nil {
		q.SurgeryCost = *p.SurgeryCost
	}
	if p.Diagnosis != nil {
		q.Diagnosis = strings.TrimSpace(*p.Diagnosis)
	}
	if p.HotelID != nil {
		if *p.HotelID == "" {
			q.HotelID = nil
		} else {
			id := *p.HotelID
			q.HotelID = &id
		}
	}
	if p.LogisticsFee != nil {
		q.LogisticsFee = *p.LogisticsFee
	}
	if p.StayDays != nil {
		q.StayDays = *p.StayDays
	}
	if p.IncludeLogistics != nil {
		q.IncludeLogistics = *p.IncludeLogistics
	}
	if p.IncludeMealPlan != nil {
		q.IncludeMealPlan = *p.IncludeMealPlan
	}
	if p.AppointmentDate != nil {
		d := p.AppointmentDate.UTC()
		q.AppointmentDate = &d
	}

	for _, c := range []struct {
		field string
		value *string
		dst   *string
	}{
		{entities.FieldPatientName, p.PatientName, &q.PatientName},
		{entities.FieldPatientPhone, p.PatientPhone, &q.PatientPhone},
		{entities.FieldPatientEmail, p.PatientEmail, &q.PatientEmail},
		{entities.FieldWhatsAppNumber, p.WhatsAppNumber, &q.WhatsAppNumber},
	} {
		if c.value == nil {
			continue
		}
		v := strings.TrimSpace(*c.value)
		if v == "" {
			continue
		}
		if *c.dst != "" && *c.dst != v {
			return apperrors.NewPreconditionFailedError(c.field, c.field+" was already captured and cannot change")
		}
		*c.dst = v
	}
	return nil
}

func requireStayAndContact(t *transition) error {
	q := t.quote
	if t.hotel == nil {
		return apperrors.NewPreconditionFailedError(entities.FieldHotelID, "a hotel must be selected")
	}
	if q.StayDays < 1 {
		return apperrors.NewPreconditionFailedError(entities.FieldStayDays, "stay_days must be at least 1")
	}
	for _, field := range contactFields {
		if contactValue(q, field) == "" {
			return apperrors.NewPreconditionFailedError(field, field+" is required")
		}
	}
	return nil
}

func requireZeroTotal(t *transition) error {
	if t.quote.TotalCost != 0 {
		return apperrors.NewPreconditionFailedError("total_cost",
			fmt.Sprintf("quote total is %d; only zero-cost quotes can be confirmed without payment", t.quote.TotalCost))
	}
	return nil
}

func requireApprovedPayment(t *transition) error {
	ev := t.evidence
	if ev == nil || ev.Status != entities.PaymentStatusApproved {
		return apperrors.NewPreconditionFailedError("payment", "an approved payment is required to mark a quote paid")
	}
	if ev.Amount != t.stored {
		return apperrors.NewAmountMismatchError(ev.Amount, t.stored)
	}
	return nil
}

func contactValue(q *entities.Quote, field string) string {
	switch field {
	case entities.FieldPatientName:
		return q.PatientName
	case entities.FieldPatientPhone:
		return q.PatientPhone
	case entities.FieldPatientEmail:
		return q.PatientEmail
	}
	return ""
}
